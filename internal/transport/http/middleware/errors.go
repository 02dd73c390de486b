package middleware

const errInternalServer = "Internal server error"
