package chessdto

// ErrorCode classifies a failed command.
type ErrorCode string

const (
	CodeInvalidMove       ErrorCode = "INVALID_MOVE"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeObserverViolation ErrorCode = "OBSERVER_VIOLATION"
	CodeProtocol          ErrorCode = "PROTOCOL"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInternal          ErrorCode = "INTERNAL"
)

// DomainError is a failure that is reported to the client who sent the command.
type DomainError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return string(e.Code)
	}
	return "chess service error"
}

// ErrorPrefix starts every errorMessage sent to clients.
const ErrorPrefix = "Error: "

// ToMessage renders e as an ERROR server message.
func (e DomainError) ToMessage() *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageError, ErrorMessage: ErrorPrefix + e.Error()}
}
