package ringbuffer_test

import (
	"github.com/nabbar/webserv/internal/ringbuffer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RingBuffer", func() {
	Describe("Write then Read", func() {
		It("round-trips bytes written within capacity", func() {
			rb := ringbuffer.New(16)
			n, err := rb.Write([]byte("hello"))
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(5))

			out := make([]byte, 5)
			got := rb.Read(out)
			Expect(got).To(Equal(5))
			Expect(out).To(Equal([]byte("hello")))
			Expect(rb.Size()).To(Equal(0))
		})
	})

	Describe("wraparound", func() {
		It("keeps correctness across the ring boundary", func() {
			rb := ringbuffer.New(8)
			_, _ = rb.Write([]byte("abcdef"))
			out := make([]byte, 4)
			rb.Read(out)
			Expect(out).To(Equal([]byte("abcd")))

			_, err := rb.Write([]byte("ghij"))
			Expect(err).ToNot(HaveOccurred())

			rest := make([]byte, 6)
			got := rb.Read(rest)
			Expect(got).To(Equal(6))
			Expect(rest).To(Equal([]byte("efghij")))
		})
	})

	Describe("overflow", func() {
		It("reports ErrWouldOverflow instead of discarding or blocking", func() {
			rb := ringbuffer.New(4)
			_, err := rb.Write([]byte("abcde"))
			Expect(err).To(MatchError(ringbuffer.ErrWouldOverflow))
			Expect(rb.Size()).To(Equal(0))
		})

		It("accepts more once the consumer has drained", func() {
			rb := ringbuffer.New(4)
			_, _ = rb.Write([]byte("abcd"))
			_, err := rb.Write([]byte("e"))
			Expect(err).To(MatchError(ringbuffer.ErrWouldOverflow))

			out := make([]byte, 2)
			rb.Read(out)
			_, err = rb.Write([]byte("ef"))
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Peek", func() {
		It("does not advance the read cursor", func() {
			rb := ringbuffer.New(8)
			_, _ = rb.Write([]byte("xyz"))
			out := make([]byte, 3)
			n := rb.Peek(out)
			Expect(n).To(Equal(3))
			Expect(rb.Size()).To(Equal(3))
		})
	})

	Describe("invariant", func() {
		It("never reports a size greater than capacity", func() {
			rb := ringbuffer.New(4)
			_, _ = rb.Write([]byte("abcd"))
			Expect(rb.Size()).To(BeNumerically("<=", rb.Capacity()))
		})
	})
})
