package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PillSync/internal/model"
)

func TestMatchMedicine(t *testing.T) {
	tests := []struct {
		name         string
		medicineName string
		recognized   string
		want         model.MatchStatus
	}{
		{
			name:         "full name hit",
			medicineName: "Paracetamol",
			recognized:   "PARACETAMOL 500mg film-coated tablets",
			want:         model.MatchStatusMatch,
		},
		{
			name:         "single token of multi-word name hit",
			medicineName: "Vitamin D3",
			recognized:   "One-A-Day vitamin complex",
			want:         model.MatchStatusMatch,
		},
		{
			name:         "case and surrounding noise ignored",
			medicineName: "ibuprofen",
			recognized:   "NUROFEN (Ibuprofen) - keep out of reach of children",
			want:         model.MatchStatusMatch,
		},
		{
			name:         "unrelated packaging text",
			medicineName: "Paracetamol",
			recognized:   "Amoxicillin 250mg capsules",
			want:         model.MatchStatusMismatch,
		},
		{
			name:         "empty recognized text means OCR failed",
			medicineName: "Paracetamol",
			recognized:   "",
			want:         model.MatchStatusMismatch,
		},
		{
			name:         "whitespace only recognized text",
			medicineName: "Paracetamol",
			recognized:   "   ",
			want:         model.MatchStatusMismatch,
		},
		{
			name:         "empty medicine name never matches",
			medicineName: "",
			recognized:   "anything at all",
			want:         model.MatchStatusMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchMedicine(tt.medicineName, tt.recognized))
		})
	}
}
