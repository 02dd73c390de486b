package form

// Messages for field/tag pairs; shared across every form so the same field
// reads the same everywhere.
var messages = map[string]string{
	"email.required": "Email is required",
	"email.email":    "Email is invalid",
	"email.min":      "Email is too short",
	"email.max":      "Email is too long",

	"username.required": "Username is required",
	"username.min":      "Username is too short",
	"username.max":      "Username is too long",
	"username.username": "Username can only include letters, numbers, and underscores",

	"usernameOrEmail.required": "Username or email is required",
	"usernameOrEmail.min":      "Username or email is too short",
	"usernameOrEmail.max":      "Username or email is too long",

	"name.required": "Name is required",
	"name.min":      "Name is too short",
	"name.max":      "Name is too long",

	"password.required":        "Password is required",
	"password.min":             "Password is too short",
	"password.max":             "Password is too long",
	"currentPassword.required": "Password is required",
	"currentPassword.min":      "Password is too short",
	"currentPassword.max":      "Password is too long",
	"newPassword.required":     "Password is required",
	"newPassword.min":          "Password is too short",
	"newPassword.max":          "Password is too long",

	"confirmPassword.required":    "Password is required",
	"confirmPassword.eqfield":     "The passwords must match",
	"confirmNewPassword.required": "Password is required",
	"confirmNewPassword.eqfield":  "The passwords must match",

	"agreeToTermsOfServiceAndPrivacyPolicy.required": "You must agree to the terms of service and privacy policy",

	"code.required": "Invalid code",
	"code.len":      "Invalid code",

	"theme.required": "Theme is required",
	"theme.oneof":    "Invalid theme",

	"intent.required": "Intent is required",
	"intent.oneof":    "Invalid intent",

	"photoFile.required": "Image is required",

	"imageUrl.url": "Image URL is invalid",
}

var fallback = map[string]string{
	"required": "Required",
	"oneof":    "Invalid option",
	"eqfield":  "Values must match",
	"email":    "Invalid email",
	"url":      "Invalid URL",
}

// Message returns the user-facing text for a failed validation tag.
func Message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	if m, ok := fallback[tag]; ok {
		return m
	}
	return "Invalid value"
}
