package scheduler

import (
	"testing"
	"time"
)

func result(success bool) JobResult {
	return JobResult{
		JobName:   "daily_pipeline",
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Success:   success,
	}
}

func TestJobHistory_Latest(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 5; i++ {
		h.Add(result(true))
	}

	if got := len(h.Latest(3)); got != 3 {
		t.Errorf("Latest(3) returned %d results", got)
	}
	if got := len(h.Latest(100)); got != 5 {
		t.Errorf("Latest(100) returned %d results, want 5", got)
	}
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.Add(result(true))
	}

	if got := len(h.Latest(historyLimit * 2)); got != historyLimit {
		t.Errorf("history holds %d results, want cap of %d", got, historyLimit)
	}
}

func TestJobHistory_SuccessRate(t *testing.T) {
	h := &JobHistory{}

	if rate := h.SuccessRate(); rate != 0 {
		t.Errorf("empty history rate = %v, want 0", rate)
	}

	h.Add(result(true))
	h.Add(result(true))
	h.Add(result(false))
	h.Add(result(true))

	if rate := h.SuccessRate(); rate != 0.75 {
		t.Errorf("rate = %v, want 0.75", rate)
	}
}
