package editor

import "errors"

var (
	// ErrSessionInvalidInput indicates a mutation argument could not be applied.
	ErrSessionInvalidInput = errors.New("session: invalid input")
	// ErrCurrencyChangeUnconfirmed is returned when a populated document changes currency without confirmation.
	ErrCurrencyChangeUnconfirmed = errors.New("session: currency change requires confirmation")
	// ErrLineItemLimit indicates the document already holds the maximum number of line items.
	ErrLineItemLimit = errors.New("session: line item limit reached")
	// ErrLineItemNotFound indicates the line item index is out of range.
	ErrLineItemNotFound = errors.New("session: line item not found")
	// ErrNothingToUndo is returned by Undo at the oldest retained snapshot.
	ErrNothingToUndo = errors.New("session: nothing to undo")
	// ErrNothingToRedo is returned by Redo at the newest snapshot.
	ErrNothingToRedo = errors.New("session: nothing to redo")
	// ErrNumberingUnavailable indicates the session was built without a numbering service.
	ErrNumberingUnavailable = errors.New("session: numbering unavailable")

	errCalculatorRequired = errors.New("session: calculator is required")
	errExporterRequired   = errors.New("session: export service is required")
)
