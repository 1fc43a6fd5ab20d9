package size_test

import (
	"github.com/nabbar/webserv/internal/size"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Size", func() {
	Describe("constants", func() {
		It("defines the expected byte multiples", func() {
			Expect(size.SizeUnit).To(Equal(size.Size(1)))
			Expect(size.SizeKilo).To(Equal(size.Size(1024)))
			Expect(size.SizeMega).To(Equal(size.Size(1048576)))
			Expect(size.SizeGiga).To(Equal(size.Size(1073741824)))
		})
	})

	Describe("Parse", func() {
		It("parses a bare integer as bytes", func() {
			s, err := size.Parse("1024")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(size.Size(1024)))
		})

		It("parses K/M/G suffixes", func() {
			s, err := size.Parse("4K")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(4 * size.SizeKilo))

			s, err = size.Parse("1M")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(size.SizeMega))

			s, err = size.Parse("2G")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(2 * size.SizeGiga))
		})

		It("rejects garbage", func() {
			_, err := size.Parse("not-a-size")
			Expect(err).To(HaveOccurred())
		})

		It("rejects negative values", func() {
			_, err := size.Parse("-5M")
			Expect(err).To(HaveOccurred())
		})
	})
})
