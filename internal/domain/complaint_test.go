package domain

import "testing"

func TestStatusTerminality(t *testing.T) {
	if !ComplaintStatusResolved.IsTerminal() {
		t.Fatal("Resolved must be terminal")
	}
	for _, status := range []ComplaintStatus{ComplaintStatusNew, ComplaintStatusInProgress, ComplaintStatusEscalated} {
		if status.IsTerminal() {
			t.Fatalf("%s must not be terminal", status)
		}
	}
}
