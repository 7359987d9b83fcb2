package noteclient

import "time"

// Processing time estimation. The poller derives its budget from these
// figures instead of a flat timeout, so a five-page scan gets more patience
// than a paragraph of text.
const (
	// perWord is the observed enhancement cost per word of text input.
	perWord = 120 * time.Millisecond
	// textFloor absorbs fixed engine latency on tiny inputs.
	textFloor = 45 * time.Second
	// textCeiling caps the estimate; past this size the engine summarizes
	// internally rather than slowing down linearly.
	textCeiling = 240 * time.Second

	// perImageSolo is the extraction cost for a lone image.
	perImageSolo = 60 * time.Second
	// perImageJoint is the per-image cost inside a joint batch, higher
	// because the engine cross-references pages.
	perImageJoint = 70 * time.Second
	// imageCeiling caps any image batch estimate.
	imageCeiling = 300 * time.Second

	// pollIntervalText and pollIntervalImage keep status polling under the
	// 2s freshness bound while giving image pipelines slightly more slack.
	pollIntervalText  = 1500 * time.Millisecond
	pollIntervalImage = 1800 * time.Millisecond

	// budgetCeiling and budgetCeilingMulti bound the total wait.
	budgetCeiling      = 5 * time.Minute
	budgetCeilingMulti = 8 * time.Minute
)

// EstimateText predicts processing time for a text note of the given word
// count.
func EstimateText(words int) time.Duration {
	d := time.Duration(words) * perWord
	if d < textFloor {
		return textFloor
	}
	if d > textCeiling {
		return textCeiling
	}
	return d
}

// EstimateImages predicts processing time for an image batch of 1..5.
func EstimateImages(count int) time.Duration {
	if count <= 0 {
		return 0
	}
	per := perImageSolo
	if count >= 2 {
		per = perImageJoint
	}
	d := time.Duration(count) * per
	if d > imageCeiling {
		return imageCeiling
	}
	return d
}

// PollBudget converts an estimate into the poller's give-up deadline. The
// margin grows with batch size: estimate × (1.5 + 0.1 × images), capped at
// five minutes for text and single images, eight for joint batches.
func PollBudget(estimate time.Duration, imageCount int) time.Duration {
	margin := 1.5 + 0.1*float64(imageCount)
	budget := time.Duration(float64(estimate) * margin)
	ceiling := budgetCeiling
	if imageCount >= 2 {
		ceiling = budgetCeilingMulti
	}
	if budget > ceiling {
		return ceiling
	}
	return budget
}

// PollInterval picks the status poll cadence for an input shape.
func PollInterval(imageCount int) time.Duration {
	if imageCount > 0 {
		return pollIntervalImage
	}
	return pollIntervalText
}
