package reconciler

import "github.com/Ananth-NQI/dinepe-backend/internal/models"

// DirectiveKind tells the responder what kind of reply the batch calls for.
type DirectiveKind string

const (
	DirectiveRequestField      DirectiveKind = "request_field"
	DirectiveAwaitConfirmation DirectiveKind = "await_confirmation"
	DirectiveCommitted         DirectiveKind = "committed"
	DirectiveOrderStatus       DirectiveKind = "order_status"
	DirectiveDraftCancelled    DirectiveKind = "draft_cancelled"
	DirectiveFeedbackRecorded  DirectiveKind = "feedback_recorded"
	DirectiveProfileUpdated    DirectiveKind = "profile_updated"
	DirectiveClarify           DirectiveKind = "clarify"
	DirectiveDeferToAI         DirectiveKind = "defer_to_ai"
)

// Directive is the reconciler's instruction for composing the reply.
type Directive struct {
	Kind      DirectiveKind
	DraftKind models.DraftKind
	// Field is the next field to ask for; Missing lists all of them in order.
	Field   models.DraftField
	Missing []models.DraftField
	// Rejected is set when a confirm was refused because the draft is incomplete.
	Rejected bool
	// Draft is a snapshot of the session draft after the batch, nil when none.
	Draft *models.Draft

	Order       *models.Order
	Reservation *models.Reservation
	Complaint   *models.Complaint

	// Discarded names the kind of draft the batch replaced, if any.
	Discarded models.DraftKind
	Note      string
}

func (d Directive) progress() bool {
	return d.Kind == DirectiveRequestField || d.Kind == DirectiveAwaitConfirmation
}

func progress() Directive {
	return Directive{Kind: DirectiveRequestField}
}

func clarify(note string) Directive {
	return Directive{Kind: DirectiveClarify, Note: note}
}

// combine folds the next step's directive into the batch result. A commit is
// not overwritten by later steps in the same batch, and chatter never hides
// progress. A clarification note survives into a following progress reply.
func combine(current, next Directive) Directive {
	switch {
	case current.Kind == DirectiveCommitted && next.Kind != DirectiveCommitted:
		return current
	case next.Kind == DirectiveDeferToAI && current.Kind != "":
		return current
	case current.Kind == DirectiveClarify && next.progress():
		next.Note = current.Note
		return next
	}
	return next
}
