package handler

const (
	errInternalServer = "Internal server error"
	errNotFound       = "Not found"

	msgInvalidCode          = "Invalid code"
	msgInvalidCredentials   = "Invalid username or password"
	msgIncorrectPassword    = "Incorrect password."
	msgEmailTaken           = "A user already exists with this email"
	msgUsernameTaken        = "A user already exists with this username"
	msgImageRequired        = "Image is required"
	msgImageTooLarge        = "Image size must be less than 3MB"
	msgChangeEmailDevice    = "You must submit the code on the same device that requested the email change."
	msgAccountAlreadyLinked = "This account is already linked to another user"
)
