package compiler

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stackplan/stackplan/pkg/graph"
	"github.com/stackplan/stackplan/pkg/plan"
	"github.com/stackplan/stackplan/pkg/template"
)

var _ = Describe("Compiler", func() {
	var compiler *Compiler

	BeforeEach(func() {
		var err error
		compiler, err = New(Config{})
		Expect(err).NotTo(HaveOccurred())
	})

	planOrder := func(p *plan.Plan) []string {
		order := make([]string, 0, p.Size())
		for _, step := range p.Steps {
			order = append(order, step.LogicalID)
		}
		return order
	}

	Context("with a valid document", func() {
		const doc = `
Resources:
  Network:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.0.0.0/16
  AppSubnet:
    Type: AWS::EC2::Subnet
    Properties:
      VpcId: {Ref: Network}
      CidrBlock: 10.0.1.0/24
  Server:
    Type: AWS::EC2::Instance
    Properties:
      ImageId: ami-12345678
      SubnetId: {Ref: AppSubnet}
`

		It("plans dependencies before dependents", func() {
			p, err := compiler.Compile([]byte(doc))
			Expect(err).NotTo(HaveOccurred())
			Expect(planOrder(p)).To(Equal([]string{"Network", "AppSubnet", "Server"}))
		})

		It("produces byte-identical output on repeated runs", func() {
			var first bytes.Buffer
			p, err := compiler.Compile([]byte(doc))
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Emit(&first, p, plan.FormatJSON)).To(Succeed())

			for i := 0; i < 10; i++ {
				var next bytes.Buffer
				p, err := compiler.Compile([]byte(doc))
				Expect(err).NotTo(HaveOccurred())
				Expect(plan.Emit(&next, p, plan.FormatJSON)).To(Succeed())
				Expect(next.Bytes()).To(Equal(first.Bytes()))
			}
		})
	})

	Context("with a forward reference", func() {
		const doc = `
Resources:
  EdgeRoute:
    Type: AWS::EC2::Route
    Properties:
      RouteTableId: rtb-1
      GatewayId: {Ref: Gateway}
  Gateway:
    Type: AWS::EC2::InternetGateway
`

		It("still plans the dependency first", func() {
			p, err := compiler.Compile([]byte(doc))
			Expect(err).NotTo(HaveOccurred())
			Expect(planOrder(p)).To(Equal([]string{"Gateway", "EdgeRoute"}))
		})
	})

	Context("with a reference to a nonexistent logical id", func() {
		const doc = `
Resources:
  AppSubnet:
    Type: AWS::EC2::Subnet
    Properties:
      VpcId: {Ref: Phantom}
      CidrBlock: 10.0.1.0/24
`

		It("fails with an unresolved reference naming the id", func() {
			p, err := compiler.Compile([]byte(doc))
			Expect(p).To(BeNil())

			report, ok := err.(*graph.ValidationReport)
			Expect(ok).To(BeTrue(), "expected *graph.ValidationReport, got %T", err)

			Expect(report.Violations).To(HaveLen(1))
			unresolved, ok := report.Violations[0].(*graph.UnresolvedReferenceError)
			Expect(ok).To(BeTrue())
			Expect(unresolved.Target).To(Equal("Phantom"))
			Expect(unresolved.Source).To(Equal("AppSubnet"))
		})
	})

	Context("with a reference cycle", func() {
		const doc = `
Resources:
  A:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.0.0.0/16
      Peer: {Ref: B}
  B:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.1.0.0/16
      Peer: {Ref: A}
`

		It("never produces a plan", func() {
			p, err := compiler.Compile([]byte(doc))
			Expect(p).To(BeNil())

			report, ok := err.(*graph.ValidationReport)
			Expect(ok).To(BeTrue(), "expected *graph.ValidationReport, got %T", err)
			Expect(report.CountByKind()).To(HaveKey(graph.KindCyclicDependency))
		})
	})

	Context("with several independent problems", func() {
		const doc = `
Resources:
  Network:
    Type: AWS::EC2::VPC
  Server:
    Type: AWS::EC2::Instance
    Properties:
      ImageId: ami-1
      SubnetId: {Ref: Phantom}
      Spare: {"Fn::GetAtt": [Network, NoSuchAttr]}
`

		It("accumulates every violation into one report", func() {
			_, err := compiler.Compile([]byte(doc))

			report, ok := err.(*graph.ValidationReport)
			Expect(ok).To(BeTrue(), "expected *graph.ValidationReport, got %T", err)

			counts := report.CountByKind()
			Expect(counts[graph.KindUnresolvedReference]).To(Equal(1))
			Expect(counts[graph.KindInvalidAttributeReference]).To(Equal(1))
			Expect(counts[graph.KindMissingRequiredAttribute]).To(Equal(1), "Network is missing CidrBlock")
			Expect(report.Violations).To(HaveLen(3))
		})
	})

	Context("with a malformed document", func() {
		It("fails with a parse error before resolution", func() {
			_, err := compiler.Compile([]byte("Resourcez: {}\n"))

			var parseErr *template.ParseError
			Expect(err).To(BeAssignableToTypeOf(parseErr))
		})
	})

	Context("with the permissive attribute policy", func() {
		const doc = `
Resources:
  Exotic:
    Type: Custom::Widget
    Properties:
      Size: 3
  User:
    Type: AWS::EC2::InternetGateway
    DependsOn: Exotic
`

		It("passes unknown types and attributes through", func() {
			permissive, err := New(Config{AttributePolicy: graph.AttributePolicyPermissive})
			Expect(err).NotTo(HaveOccurred())

			p, err := permissive.Compile([]byte(doc))
			Expect(err).NotTo(HaveOccurred())
			Expect(planOrder(p)).To(Equal([]string{"Exotic", "User"}))

			strict, err := New(Config{AttributePolicy: graph.AttributePolicyStrict})
			Expect(err).NotTo(HaveOccurred())

			_, err = strict.Compile([]byte(doc))
			report, ok := err.(*graph.ValidationReport)
			Expect(ok).To(BeTrue(), "expected *graph.ValidationReport, got %T", err)
			Expect(report.CountByKind()).To(HaveKey(graph.KindUnknownResourceType))
		})
	})
})
