package errors_test

import (
	stderrors "errors"

	liberr "github.com/nabbar/webserv/internal/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	Describe("New", func() {
		It("carries its code and message", func() {
			err := liberr.New(liberr.NotFound, "no such route")
			Expect(err.Code()).To(Equal(liberr.NotFound))
			Expect(err.Error()).To(ContainSubstring("no such route"))
		})
	})

	Describe("Wrap", func() {
		It("keeps the parent reachable and visible in Error()", func() {
			root := stderrors.New("disk full")
			err := liberr.Wrap(liberr.Internal, "write failed", root)
			Expect(err.Error()).To(ContainSubstring("disk full"))
			Expect(err.Parent()).ToNot(BeNil())
		})
	})

	Describe("IsCode", func() {
		It("matches the direct code", func() {
			err := liberr.New(liberr.BadRequest, "bad")
			Expect(liberr.IsCode(err, liberr.BadRequest)).To(BeTrue())
			Expect(liberr.IsCode(err, liberr.NotFound)).To(BeFalse())
		})

		It("walks the parent chain", func() {
			inner := liberr.New(liberr.BodyTooBig, "body")
			outer := liberr.Wrap(liberr.Internal, "outer", inner)
			Expect(liberr.IsCode(outer, liberr.BodyTooBig)).To(BeTrue())
		})
	})

	Describe("ConfigError", func() {
		It("formats as line:col: message", func() {
			err := liberr.NewConfigError(liberr.ConfigLex, 4, 9, "unterminated string")
			Expect(err.Error()).To(Equal("4:9: unterminated string"))
		})
	})
})
