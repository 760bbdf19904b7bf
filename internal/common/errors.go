// errors.go - Sentinel errors shared across the pipeline

package common

import "errors"

var (
	// ErrInvalidImage means the input bytes could not be decoded as an image
	ErrInvalidImage = errors.New("invalid or unreadable image")

	// ErrRecognitionUnavailable means the OCR engine could not be reached or failed
	ErrRecognitionUnavailable = errors.New("recognition engine unavailable")

	// ErrNotAReceipt means classification decided the document is not a payment receipt
	ErrNotAReceipt = errors.New("document is not a payment receipt")

	// ErrFeedbackRejected means a feedback row failed strict validation
	ErrFeedbackRejected = errors.New("feedback record rejected")
)
