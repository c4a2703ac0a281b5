package service

import (
	"fmt"
	"time"

	"reconciliation-service/internal/models"

	"github.com/govalues/decimal"
)

// Decision is the outcome of evaluating an event against an order
type Decision int

const (
	// DecisionNoop leaves the order untouched: duplicate, stale or informational
	DecisionNoop Decision = iota
	// DecisionApply commits the transition patch
	DecisionApply
	// DecisionConflict means the event contradicts the order and needs an operator
	DecisionConflict
)

func (d Decision) String() string {
	switch d {
	case DecisionApply:
		return "apply"
	case DecisionConflict:
		return "conflict"
	default:
		return "noop"
	}
}

// Transition is what Decide wants done with an event
type Transition struct {
	Decision Decision
	Patch    models.TransitionPatch
	Reason   string
	Notify   models.NotificationKind
}

type rule struct {
	// check evaluates the precondition; it returns DecisionApply when effect should run
	check  func(order *models.Order, ev *models.PaymentEvent) (Decision, string)
	effect func(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error)
}

var transitionTable = map[models.EventType]rule{
	models.EventCaptureCompleted:  {check: checkCapture, effect: applyCapture},
	models.EventCheckoutCompleted: {check: checkCapture, effect: applyCheckoutCompleted},
	models.EventCaptureDenied:     {check: checkDenied, effect: applyDenied},
	models.EventCapturePending:    {check: checkPending, effect: applyPending},
	models.EventCaptureRefunded:   {check: checkRefund, effect: applyRefund},
	models.EventCheckoutProcessed: {check: checkProcessed, effect: applyProcessed},
	models.EventDisputeCreated:    {check: checkDisputeCreated, effect: applyDisputeCreated},
	models.EventDisputeResolved:   {check: checkDisputeResolved, effect: applyDisputeResolved},
}

// Decide evaluates ev against the current state of order. It is pure: the
// same order and event always produce the same transition.
func Decide(order models.Order, ev models.PaymentEvent, now time.Time) Transition {
	r, ok := transitionTable[ev.Type]
	if !ok {
		return Transition{Decision: DecisionNoop, Reason: "event type " + ev.TypeName() + " does not change orders"}
	}

	if order.Metadata.HasEvent(ev.Provider, ev.ID) {
		return Transition{Decision: DecisionNoop, Reason: "event already applied"}
	}

	decision, reason := r.check(&order, &ev)
	if decision != DecisionApply {
		return Transition{Decision: decision, Reason: reason}
	}

	patch, notify, err := r.effect(&order, &ev, now)
	if err != nil {
		return Transition{Decision: DecisionConflict, Reason: err.Error()}
	}

	patch.Provider = ev.Provider
	patch.EventID = ev.ID
	patch.EventType = ev.Type
	patch.Metadata.CorrelationKeys = append(eventKeys(&ev), patch.Metadata.CorrelationKeys...)

	return Transition{Decision: DecisionApply, Patch: patch, Reason: reason, Notify: notify}
}

func noop(format string, args ...interface{}) (Decision, string) {
	return DecisionNoop, fmt.Sprintf(format, args...)
}

func conflict(format string, args ...interface{}) (Decision, string) {
	return DecisionConflict, fmt.Sprintf(format, args...)
}

func apply(reason string) (Decision, string) {
	return DecisionApply, reason
}

// eventKeys are the provider ids an applied event teaches us about the order.
// Order numbers are a column, not an index entry.
func eventKeys(ev *models.PaymentEvent) []models.CorrelationKey {
	keys := make([]models.CorrelationKey, 0, len(ev.Candidates))
	for _, k := range ev.Candidates {
		if k.Kind != models.KeyOrderNumber {
			keys = append(keys, k)
		}
	}
	return keys
}

func captureKeys(provider models.Provider, captureID string) []models.CorrelationKey {
	if captureID == "" {
		return nil
	}
	return []models.CorrelationKey{
		{Kind: models.KeyCaptureID, Value: captureID},
		{Kind: models.KeyTransactionID, Value: models.TransactionID(provider, captureID)},
	}
}

func auditEntry(kind models.AuditKind, ev *models.PaymentEvent, now time.Time) models.AuditEntry {
	return models.AuditEntry{
		Kind:       kind,
		Provider:   ev.Provider,
		EventID:    ev.ID,
		EventType:  ev.Type,
		OccurredAt: ev.OccurredAt,
		RecordedAt: now,
		Raw:        ev.Raw,
	}
}

// advanceFulfillment moves an order that has not shipped to PROCESSING
func advanceFulfillment(status models.OrderStatus) models.OrderStatus {
	if status == models.OrderStatusPending {
		return models.OrderStatusProcessing
	}
	return ""
}

func checkCapture(order *models.Order, _ *models.PaymentEvent) (Decision, string) {
	switch order.PaymentStatus {
	case models.PaymentStatusPending, models.PaymentStatusFailed:
		return apply("capture completed")
	case models.PaymentStatusPaid:
		return noop("order already paid")
	default:
		return noop("stale capture: payment already %s", order.PaymentStatus)
	}
}

func applyCapture(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	entry := auditEntry(models.AuditPaymentDetails, ev, now)
	details := &models.PaymentDetails{}
	var amount *models.Money
	if ev.Capture != nil {
		details.CaptureID = ev.Capture.CaptureID
		details.Status = ev.Capture.Status
		details.Amount = ev.Capture.Amount
		amount = ev.Capture.Amount
		if ev.Capture.CaptureID != "" {
			details.TransactionID = models.TransactionID(ev.Provider, ev.Capture.CaptureID)
		}
	}
	entry.PaymentDetails = details

	patch := models.TransitionPatch{
		Status:        advanceFulfillment(order.Status),
		PaymentStatus: models.PaymentStatusPaid,
		Metadata: models.MetadataPatch{
			CorrelationKeys: captureKeys(ev.Provider, details.CaptureID),
			CapturedAmount:  amount,
			Audit:           []models.AuditEntry{entry},
		},
	}
	return patch, models.NotifyPaymentReceived, nil
}

func applyCheckoutCompleted(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	patch, notify, err := applyCapture(order, ev, now)
	if err != nil {
		return patch, notify, err
	}
	patch.Metadata.Buyer = ev.Buyer
	return patch, notify, nil
}

func checkDenied(order *models.Order, ev *models.PaymentEvent) (Decision, string) {
	if order.PaymentStatus.Settled() {
		if ev.Capture != nil && ev.Capture.CaptureID != "" &&
			order.Metadata.HasKey(models.CorrelationKey{Kind: models.KeyCaptureID, Value: ev.Capture.CaptureID}) {
			return conflict("capture %s denied after it completed", ev.Capture.CaptureID)
		}
		return noop("stale denial: payment already %s", order.PaymentStatus)
	}
	if order.PaymentStatus == models.PaymentStatusFailed {
		return noop("payment already failed")
	}
	return apply("capture denied")
}

func applyDenied(_ *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	entry := auditEntry(models.AuditPaymentError, ev, now)
	perr := &models.PaymentError{}
	if ev.Capture != nil {
		perr.CaptureID = ev.Capture.CaptureID
	}
	if ev.Failure != nil {
		perr.Code = ev.Failure.Code
		perr.Reason = ev.Failure.Reason
	}
	entry.PaymentError = perr

	return models.TransitionPatch{
		PaymentStatus: models.PaymentStatusFailed,
		Metadata: models.MetadataPatch{
			CorrelationKeys: captureKeys(ev.Provider, perr.CaptureID),
			Audit:           []models.AuditEntry{entry},
		},
	}, models.NotifyPaymentFailed, nil
}

func checkPending(order *models.Order, ev *models.PaymentEvent) (Decision, string) {
	if order.PaymentStatus.Settled() {
		return noop("stale pending capture: payment already %s", order.PaymentStatus)
	}
	if order.PaymentStatus == models.PaymentStatusPending && hasPendingAudit(order, ev) {
		return noop("payment already pending")
	}
	return apply("capture pending")
}

func hasPendingAudit(order *models.Order, ev *models.PaymentEvent) bool {
	captureID := ""
	if ev.Capture != nil {
		captureID = ev.Capture.CaptureID
	}
	for _, e := range order.Metadata.Audit {
		if e.Kind != models.AuditPaymentPending {
			continue
		}
		if captureID == "" || e.PaymentDetails == nil || e.PaymentDetails.CaptureID == captureID {
			return true
		}
	}
	return false
}

func applyPending(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	entry := auditEntry(models.AuditPaymentPending, ev, now)
	details := &models.PaymentDetails{}
	if ev.Capture != nil {
		details.CaptureID = ev.Capture.CaptureID
		details.Status = ev.Capture.Status
		details.Amount = ev.Capture.Amount
	}
	entry.PaymentDetails = details

	var status models.OrderStatus
	if order.Status == models.OrderStatusProcessing {
		status = models.OrderStatusPending
	}

	return models.TransitionPatch{
		Status:        status,
		PaymentStatus: models.PaymentStatusPending,
		Metadata: models.MetadataPatch{
			CorrelationKeys: captureKeys(ev.Provider, details.CaptureID),
			Audit:           []models.AuditEntry{entry},
		},
	}, models.NotifyPaymentPending, nil
}

func checkRefund(order *models.Order, ev *models.PaymentEvent) (Decision, string) {
	if ev.Refund == nil || ev.Refund.RefundID == "" {
		return conflict("refund event without refund id")
	}
	if order.Metadata.HasRefund(ev.Refund.RefundID) {
		return noop("refund %s already counted", ev.Refund.RefundID)
	}

	switch order.PaymentStatus {
	case models.PaymentStatusPaid, models.PaymentStatusPartiallyRefunded:
		return apply("capture refunded")
	case models.PaymentStatusRefunded:
		return noop("order already fully refunded")
	case models.PaymentStatusDisputed:
		return conflict("refund %s on a disputed order", ev.Refund.RefundID)
	default:
		if carriesCapture(ev) {
			return apply("capture refunded")
		}
		// The capture has not been seen yet; keep the refund for replay
		return conflict("refund %s before capture (payment %s)", ev.Refund.RefundID, order.PaymentStatus)
	}
}

// carriesCapture reports whether a refund event includes the captured charge it
// refunds, which is evidence of the capture even if its own event never arrived.
func carriesCapture(ev *models.PaymentEvent) bool {
	return ev.Capture != nil && ev.Capture.CaptureID != "" && ev.Capture.Amount != nil
}

// applyRefund accumulates refunds. The running total is the larger of our own
// sum and the provider-reported total.
func applyRefund(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	refund := ev.Refund

	captured := order.Metadata.CapturedAmount
	var newCaptured *models.Money
	if captured == nil && ev.Capture != nil && ev.Capture.Amount != nil {
		captured = ev.Capture.Amount
		newCaptured = ev.Capture.Amount
	}

	currency := ""
	for _, m := range []*models.Money{captured, order.Metadata.RefundedAmount, refund.Amount, refund.TotalRefunded} {
		if m == nil || m.Currency == "" {
			continue
		}
		if currency == "" {
			currency = m.Currency
		} else if m.Currency != currency {
			return models.TransitionPatch{}, "", fmt.Errorf("refund currency %s does not match %s", m.Currency, currency)
		}
	}

	total, err := sumMoney(order.Metadata.RefundedAmount, refund.Amount)
	if err != nil {
		return models.TransitionPatch{}, "", err
	}
	if refund.TotalRefunded != nil {
		reported, err := refund.TotalRefunded.Decimal()
		if err != nil {
			return models.TransitionPatch{}, "", err
		}
		if reported.Cmp(total) > 0 {
			total = reported
		}
	}

	full := false
	if captured != nil {
		capturedValue, err := captured.Decimal()
		if err != nil {
			return models.TransitionPatch{}, "", err
		}
		full = total.Cmp(capturedValue) >= 0
	}

	status := models.PaymentStatusPartiallyRefunded
	if full {
		status = models.PaymentStatusRefunded
	}

	totalMoney := &models.Money{Value: total.String(), Currency: currency}
	entry := auditEntry(models.AuditRefundDetails, ev, now)
	entry.RefundDetails = &models.RefundDetails{
		RefundID:      refund.RefundID,
		CaptureID:     refund.CaptureID,
		Amount:        refund.Amount,
		TotalRefunded: totalMoney,
		Full:          full,
	}

	patch := models.TransitionPatch{
		PaymentStatus: status,
		Metadata: models.MetadataPatch{
			CorrelationKeys: captureKeys(ev.Provider, refund.CaptureID),
			CapturedAmount:  newCaptured,
			RefundedAmount:  totalMoney,
			RefundID:        refund.RefundID,
			Audit:           []models.AuditEntry{entry},
		},
	}
	if !order.PaymentStatus.Settled() {
		patch.Metadata.CorrelationKeys = append(patch.Metadata.CorrelationKeys, captureKeys(ev.Provider, ev.Capture.CaptureID)...)
		if !full {
			patch.Status = advanceFulfillment(order.Status)
		}
	}
	return patch, models.NotifyRefundIssued, nil
}

func sumMoney(values ...*models.Money) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range values {
		if m == nil || m.Value == "" {
			continue
		}
		d, err := m.Decimal()
		if err != nil {
			return decimal.Decimal{}, err
		}
		total, err = total.Add(d)
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return total, nil
}

func checkProcessed(order *models.Order, _ *models.PaymentEvent) (Decision, string) {
	if order.Status != models.OrderStatusPending {
		return noop("order already %s", order.Status)
	}
	return apply("checkout processing")
}

func applyProcessed(_ *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	return models.TransitionPatch{
		Status: models.OrderStatusProcessing,
		Metadata: models.MetadataPatch{
			Audit: []models.AuditEntry{auditEntry(models.AuditCheckoutProcessing, ev, now)},
		},
	}, models.NotifyOrderProcessing, nil
}

func checkDisputeCreated(order *models.Order, ev *models.PaymentEvent) (Decision, string) {
	if ev.Dispute == nil || ev.Dispute.DisputeID == "" {
		return conflict("dispute event without dispute id")
	}
	if d := order.Metadata.Dispute; d != nil && d.DisputeID == ev.Dispute.DisputeID {
		return noop("dispute %s already recorded", d.DisputeID)
	}
	if order.Metadata.Dispute.Open() {
		return conflict("dispute %s opened while %s is still open", ev.Dispute.DisputeID, order.Metadata.Dispute.DisputeID)
	}
	return apply("dispute created")
}

func applyDisputeCreated(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	info := ev.Dispute
	dispute := &models.Dispute{
		DisputeID:             info.DisputeID,
		Reason:                info.Reason,
		Status:                info.Status,
		Amount:                info.Amount,
		SellerResponseDueDate: info.SellerResponseDueDate,
		PriorPaymentStatus:    order.PaymentStatus,
		OpenedAt:              now,
	}

	entry := auditEntry(models.AuditDispute, ev, now)
	entry.Dispute = dispute

	return models.TransitionPatch{
		PaymentStatus: models.PaymentStatusDisputed,
		Metadata: models.MetadataPatch{
			Dispute: dispute,
			Audit:   []models.AuditEntry{entry},
		},
	}, models.NotifyDisputeOpened, nil
}

func checkDisputeResolved(order *models.Order, ev *models.PaymentEvent) (Decision, string) {
	if ev.Dispute == nil || ev.Dispute.DisputeID == "" {
		return conflict("dispute event without dispute id")
	}
	d := order.Metadata.Dispute
	if d == nil || d.DisputeID != ev.Dispute.DisputeID {
		// Either the creation has not arrived yet or the id is wrong; an operator
		// can replay once the dispute exists
		return conflict("no dispute %s on order", ev.Dispute.DisputeID)
	}
	if !d.Open() {
		return noop("dispute %s already resolved", d.DisputeID)
	}
	if ev.Dispute.Favor != models.FavorBuyer && ev.Dispute.Favor != models.FavorSeller {
		return conflict("dispute %s resolved with unrecognized outcome %q", d.DisputeID, ev.Dispute.Outcome)
	}
	return apply("dispute resolved")
}

// sellerFavorStatus is the payment status a dispute lost by the buyer returns to.
// Disputes recorded without a prior status predate capture tracking and count as paid.
func sellerFavorStatus(prior models.PaymentStatus) models.PaymentStatus {
	if prior == "" || prior == models.PaymentStatusDisputed {
		return models.PaymentStatusPaid
	}
	return prior
}

func applyDisputeResolved(order *models.Order, ev *models.PaymentEvent, now time.Time) (models.TransitionPatch, models.NotificationKind, error) {
	resolved := *order.Metadata.Dispute
	resolvedAt := now
	resolved.ResolvedAt = &resolvedAt
	resolved.Outcome = ev.Dispute.Outcome
	if ev.Dispute.Status != "" {
		resolved.Status = ev.Dispute.Status
	}

	patch := models.TransitionPatch{}
	if ev.Dispute.Favor == models.FavorBuyer {
		patch.PaymentStatus = models.PaymentStatusRefunded
	} else {
		patch.PaymentStatus = sellerFavorStatus(resolved.PriorPaymentStatus)
		if patch.PaymentStatus == models.PaymentStatusPaid || patch.PaymentStatus == models.PaymentStatusPartiallyRefunded {
			patch.Status = advanceFulfillment(order.Status)
		}
	}

	entry := auditEntry(models.AuditDisputeResolution, ev, now)
	entry.DisputeResolution = &models.DisputeResolution{
		DisputeID: resolved.DisputeID,
		Outcome:   ev.Dispute.Outcome,
		Favor:     string(ev.Dispute.Favor),
	}
	patch.Metadata = models.MetadataPatch{
		Dispute: &resolved,
		Audit:   []models.AuditEntry{entry},
	}
	return patch, models.NotifyDisputeResolved, nil
}
