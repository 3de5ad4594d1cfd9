package compiler

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache", func() {
	const doc = `
Resources:
  Network:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.0.0.0/16
`

	var (
		compiler *Compiler
		cache    *Cache
	)

	BeforeEach(func() {
		var err error
		compiler, err = New(Config{})
		Expect(err).NotTo(HaveOccurred())
		cache = NewCache()
	})

	It("reuses the plan for byte-identical documents", func() {
		first, err := compiler.CompileCached(cache, []byte(doc))
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.Size()).To(Equal(1))

		second, err := compiler.CompileCached(cache, []byte(doc))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
	})

	It("does not cache failed compilations", func() {
		_, err := compiler.CompileCached(cache, []byte("Resources:\n  A:\n    Type: 7\n"))
		Expect(err).To(HaveOccurred())
		Expect(cache.Size()).To(BeZero())
	})

	It("keys on document content", func() {
		Expect(DocumentKey([]byte(doc))).To(Equal(DocumentKey([]byte(doc))))
		Expect(DocumentKey([]byte(doc))).NotTo(Equal(DocumentKey([]byte(doc + " "))))
	})

	It("supports delete and clear", func() {
		_, err := compiler.CompileCached(cache, []byte(doc))
		Expect(err).NotTo(HaveOccurred())

		cache.Delete(DocumentKey([]byte(doc)))
		Expect(cache.Size()).To(BeZero())

		_, err = compiler.CompileCached(cache, []byte(doc))
		Expect(err).NotTo(HaveOccurred())
		cache.Clear()
		Expect(cache.Size()).To(BeZero())
	})
})
