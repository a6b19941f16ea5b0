package dispatch

import (
	"context"
	"errors"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

func protocolError(msg string) chessdto.DomainError {
	return chessdto.DomainError{Code: chessdto.CodeProtocol, Message: msg}
}

var (
	errObserver = chessdto.DomainError{Code: chessdto.CodeObserverViolation, Message: "observers cannot do that"}
	errInternal = chessdto.DomainError{Code: chessdto.CodeInternal, Message: "internal server error"}
)

func invalidMove(msg string) chessdto.DomainError {
	return chessdto.DomainError{Code: chessdto.CodeInvalidMove, Message: msg}
}

// classify maps any handler error onto the wire taxonomy.
// internal is true for faults that are the server's, not the client's.
func classify(err error) (de chessdto.DomainError, internal bool) {
	if errors.As(err, &de) {
		return de, de.Code == chessdto.CodeInternal
	}
	var me *chess.MoveError
	switch {
	case errors.As(err, &me):
		return invalidMove(me.Reason.String()), false
	case errors.Is(err, domain.ErrUnauthorized):
		return chessdto.DomainError{Code: chessdto.CodeUnauthorized, Message: "unauthorized"}, false
	case errors.Is(err, domain.ErrGameNotFound):
		return chessdto.DomainError{Code: chessdto.CodeNotFound, Message: "game not found"}, false
	case errors.Is(err, domain.ErrConflict):
		return chessdto.DomainError{Code: chessdto.CodeConflict, Message: "game changed while processing, try again", Retryable: true}, false
	case errors.Is(err, context.DeadlineExceeded):
		return chessdto.DomainError{Code: chessdto.CodeInternal, Message: "request timed out", Retryable: true}, true
	}
	return errInternal, true
}
