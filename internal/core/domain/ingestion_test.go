package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIngestionState_CanTransition(t *testing.T) {
	tests := []struct {
		from IngestionState
		to   IngestionState
		want bool
	}{
		{IngestionCreated, IngestionChunking, true},
		{IngestionChunking, IngestionEmbedding, true},
		{IngestionEmbedding, IngestionIndexed, true},
		{IngestionCreated, IngestionFailed, true},
		{IngestionChunking, IngestionFailed, true},
		{IngestionEmbedding, IngestionFailed, true},
		{IngestionIndexed, IngestionCreated, true},
		{IngestionFailed, IngestionCreated, true},
		{IngestionCreated, IngestionIndexed, false},
		{IngestionChunking, IngestionIndexed, false},
		{IngestionIndexed, IngestionFailed, false},
		{IngestionFailed, IngestionChunking, false},
		{IngestionEmbedding, IngestionChunking, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestIngestionState_IsTerminal(t *testing.T) {
	assert.True(t, IngestionIndexed.IsTerminal())
	assert.True(t, IngestionFailed.IsTerminal())
	assert.False(t, IngestionCreated.IsTerminal())
	assert.False(t, IngestionChunking.IsTerminal())
	assert.False(t, IngestionEmbedding.IsTerminal())
}

func TestIngestionState_IsValid(t *testing.T) {
	assert.True(t, IngestionEmbedding.IsValid())
	assert.False(t, IngestionState("queued").IsValid())
	assert.False(t, IngestionState("").IsValid())
}

func TestIngestionStatus_Incomplete(t *testing.T) {
	assert.False(t, (&IngestionStatus{State: IngestionIndexed}).Incomplete())
	assert.True(t, (&IngestionStatus{State: IngestionEmbedding, IndexedCount: 2}).Incomplete())
	assert.True(t, (&IngestionStatus{State: IngestionFailed}).Incomplete())
}

func TestIngestionStatus_Stalled(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		state   IngestionState
		updated time.Time
		want    bool
	}{
		{"embedding, abandoned", IngestionEmbedding, now.Add(-time.Hour), true},
		{"chunking, abandoned", IngestionChunking, now.Add(-time.Hour), true},
		{"embedding, recent progress", IngestionEmbedding, now.Add(-time.Minute), false},
		{"created is never stalled", IngestionCreated, now.Add(-time.Hour), false},
		{"failed is never stalled", IngestionFailed, now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &IngestionStatus{State: tt.state, UpdatedAt: tt.updated}
			assert.Equal(t, tt.want, s.Stalled(now, 30*time.Minute))
		})
	}
}
