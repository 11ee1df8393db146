package errortypes

// Timeout should be used to flag that a collaborator failed to return a response before the
// evaluation timeout timer expired.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// BadInput should be used when returning errors which are caused by bad input.
// It should _not_ be used if the error is a server-side issue (e.g. a failed collaborator call).
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// ProductNotFound should be used when a proposal references a product id that does not
// resolve in the catalog. It halts the evaluation pipeline.
type ProductNotFound struct {
	Message string
}

func (err *ProductNotFound) Error() string {
	return err.Message
}

func (err *ProductNotFound) Code() int {
	return ProductNotFoundErrorCode
}

func (err *ProductNotFound) Severity() Severity {
	return SeverityFatal
}

// MalformedConfig should be used when engine configuration fails validation at startup.
// It must never be returned during per-proposal evaluation.
type MalformedConfig struct {
	Message string
}

func (err *MalformedConfig) Error() string {
	return err.Message
}

func (err *MalformedConfig) Code() int {
	return MalformedConfigErrorCode
}

func (err *MalformedConfig) Severity() Severity {
	return SeverityFatal
}

// CollaboratorFailure should be used when an external collaborator (availability source,
// advisory service, embedding exchange, persistence) errors or returns malformed data.
// Callers are expected to log it and fall back to the documented degraded behavior.
type CollaboratorFailure struct {
	Message string
}

func (err *CollaboratorFailure) Error() string {
	return err.Message
}

func (err *CollaboratorFailure) Code() int {
	return CollaboratorFailureErrorCode
}

func (err *CollaboratorFailure) Severity() Severity {
	return SeverityWarning
}

// Warning is a generic non-fatal error. Use the dedicated types below when one fits.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}

// BelowFloor flags an offered price under the enforced floor. The pipeline records it
// and continues with a conservative decision.
type BelowFloor struct {
	Message string
}

func (err *BelowFloor) Error() string {
	return err.Message
}

func (err *BelowFloor) Code() int {
	return BelowFloorWarningCode
}

func (err *BelowFloor) Severity() Severity {
	return SeverityWarning
}

// InsufficientInventory flags a requested impression volume above forecast availability.
type InsufficientInventory struct {
	Message string
}

func (err *InsufficientInventory) Error() string {
	return err.Message
}

func (err *InsufficientInventory) Code() int {
	return InsufficientInventoryWarningCode
}

func (err *InsufficientInventory) Severity() Severity {
	return SeverityWarning
}

// InvalidConsent flags an embedding exchange rejected for a missing or empty consent object.
type InvalidConsent struct {
	Message string
}

func (err *InvalidConsent) Error() string {
	return err.Message
}

func (err *InvalidConsent) Code() int {
	return InvalidConsentWarningCode
}

func (err *InvalidConsent) Severity() Severity {
	return SeverityWarning
}
