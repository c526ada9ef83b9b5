package ledger

import (
	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// MergeEdit resolves two edits to the same event. The later EditedAt wins;
// on a tie the incoming edit wins.
func MergeEdit(prev, next models.TransactionEdit) models.TransactionEdit {
	if next.EditedAt.Before(prev.EditedAt) {
		return prev
	}
	return next
}

// ApplyEdits overlays saved edits onto the upstream events, matching on
// history key. The input slice is not modified.
func ApplyEdits(events []models.PayoutEvent, edits map[string]models.TransactionEdit) []models.PayoutEvent {
	out := make([]models.PayoutEvent, len(events))
	copy(out, events)
	if len(edits) == 0 {
		return out
	}

	for i := range out {
		edit, ok := edits[out[i].HistoryKey]
		if !ok || out[i].HistoryKey == "" {
			continue
		}
		applyEdit(&out[i], edit)
	}
	return out
}

func applyEdit(ev *models.PayoutEvent, edit models.TransactionEdit) {
	if edit.Client != nil {
		ev.ClientName = *edit.Client
	}
	if edit.Amount != nil {
		ev.Amount = *edit.Amount
	}
	if edit.PrincipalApplied != nil {
		ev.PrincipalApplied = *edit.PrincipalApplied
	}
	if edit.FeeApplied != nil {
		ev.FeeApplied = *edit.FeeApplied
	}
	if edit.Description != nil {
		ev.MatchMethod = *edit.Description
	}
	if edit.Error != nil {
		ev.Error = *edit.Error
	}
	if edit.Notes != nil {
		ev.Notes = *edit.Notes
	}
	editedAt := edit.EditedAt
	ev.EditedAt = &editedAt
}
