package noteclient

import (
	"testing"
	"time"
)

func TestEstimateTextBounds(t *testing.T) {
	// WHAT: The text estimate is linear between a floor and a ceiling.
	// WHY: Tiny inputs still pay fixed engine latency; huge inputs do not
	// earn an unbounded wait.
	if got := EstimateText(10); got != 45*time.Second {
		t.Errorf("10 words = %v, want floor 45s", got)
	}
	if got := EstimateText(1000); got != 120*time.Second {
		t.Errorf("1000 words = %v, want 120s", got)
	}
	if got := EstimateText(100000); got != 240*time.Second {
		t.Errorf("100000 words = %v, want ceiling 240s", got)
	}
}

func TestEstimateImagesJointRate(t *testing.T) {
	// WHAT: A lone image costs 60s; batches switch to the higher joint
	// per-image rate and cap at 300s.
	if got := EstimateImages(1); got != 60*time.Second {
		t.Errorf("1 image = %v, want 60s", got)
	}
	if got := EstimateImages(3); got != 210*time.Second {
		t.Errorf("3 images = %v, want 210s", got)
	}
	if got := EstimateImages(5); got != 300*time.Second {
		t.Errorf("5 images = %v, want ceiling 300s", got)
	}
	if got := EstimateImages(0); got != 0 {
		t.Errorf("0 images = %v, want 0", got)
	}
}

func TestPollBudgetMargin(t *testing.T) {
	// WHAT: Budget = estimate × (1.5 + 0.1 × images), with a 5min ceiling
	// for text and single images and 8min for joint batches.
	if got := PollBudget(100*time.Second, 0); got != 150*time.Second {
		t.Errorf("text budget = %v, want 150s", got)
	}
	if got := PollBudget(60*time.Second, 1); got != 96*time.Second {
		t.Errorf("single-image budget = %v, want 96s", got)
	}
	if got := PollBudget(240*time.Second, 0); got != 5*time.Minute {
		t.Errorf("text budget = %v, want 5m ceiling", got)
	}
	if got := PollBudget(300*time.Second, 5); got != 8*time.Minute {
		t.Errorf("batch budget = %v, want 8m ceiling", got)
	}
}

func TestPollIntervalByShape(t *testing.T) {
	if got := PollInterval(0); got != 1500*time.Millisecond {
		t.Errorf("text interval = %v", got)
	}
	if got := PollInterval(3); got != 1800*time.Millisecond {
		t.Errorf("image interval = %v", got)
	}
}
