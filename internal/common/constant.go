package common

// TokenQueryParam is the query string parameter that may carry a bearer
// token. E-mailed confirmation and reset links use it.
const TokenQueryParam = "code"

// AuthorizationHeader carries "Bearer <token>" on API requests.
const AuthorizationHeader = "Authorization"

// SystemSender labels notifications produced by the platform itself.
const SystemSender = "Mensagem do Sistema"
