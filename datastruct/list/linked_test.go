package list_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"mredis/datastruct/list"
)

func TestList(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "datastruct/list")
}

var _ = Describe("List", func() {
	It("pops elements in FIFO order", func() {
		var l list.List[int]
		l.PushBack(1)
		l.PushBack(2)
		l.PushBack(3)

		v, ok := l.PopFront()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))

		v, ok = l.PopFront()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(2))

		Expect(l.Len()).To(Equal(1))
	})

	It("reports ok=false popping an empty list", func() {
		var l list.List[string]
		_, ok := l.PopFront()
		Expect(ok).To(BeFalse())
	})

	It("removes matching elements anywhere in the list", func() {
		var l list.List[string]
		l.PushBack("a")
		l.PushBack("b")
		l.PushBack("a")

		removed := l.RemoveAllByVal(func(s string) bool { return s == "a" })
		Expect(removed).To(Equal(2))
		Expect(l.Len()).To(Equal(1))

		v, ok := l.Front()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("b"))
	})
})
