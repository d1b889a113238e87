package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingJob(t *testing.T) {
	now := time.Now()
	job := NewEmbeddingJob("job1", "faq1", now)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "faq1", job.FAQID)
	assert.Equal(t, EmbeddingJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Nil(t, job.ProcessedAt)
	require.NoError(t, ValidateEmbeddingJob(job))
}

func TestValidateEmbeddingJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		job    *EmbeddingJob
		errMsg string
	}{
		{"nil job", nil, "nil"},
		{"missing ID", &EmbeddingJob{FAQID: "faq1", Status: EmbeddingJobStatusPending, CreatedAt: now}, "ID"},
		{"missing FAQID", &EmbeddingJob{ID: "job1", Status: EmbeddingJobStatusPending, CreatedAt: now}, "FAQID"},
		{"bad status", &EmbeddingJob{ID: "job1", FAQID: "faq1", Status: "queued", CreatedAt: now}, "Status"},
		{"negative retries", &EmbeddingJob{ID: "job1", FAQID: "faq1", Status: EmbeddingJobStatusFailed, Retries: -1}, "Retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingJob(tt.job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
