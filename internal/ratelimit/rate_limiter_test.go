package ratelimit_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/internal/ratelimit"
)

var _ = Describe("RateLimiter", func() {
	It("serves up to the bucket capacity without blocking", func() {
		rl := ratelimit.NewRateLimiter(3, time.Hour)

		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeFalse())
	})

	It("refills after the configured interval", func() {
		rl := ratelimit.NewRateLimiter(1, 20*time.Millisecond)

		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeFalse())

		time.Sleep(30 * time.Millisecond)
		Expect(rl.Allow()).To(BeTrue())
	})

	It("never exceeds the bucket capacity on refill", func() {
		rl := ratelimit.NewRateLimiter(2, 5*time.Millisecond)

		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeTrue())

		time.Sleep(40 * time.Millisecond)
		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeTrue())
		Expect(rl.Allow()).To(BeFalse())
	})
})
