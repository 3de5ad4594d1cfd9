//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const validTemplate = `
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
`

const brokenTemplate = `
Resources:
  AppSubnet:
    Type: AWS::EC2::Subnet
    Properties:
      VpcId: {Ref: Phantom}
      CidrBlock: 10.0.1.0/24
`

var _ = Describe("stackplan CLI", Ordered, func() {
	var (
		binaryPath   string
		templatePath string
		brokenPath   string
	)

	// run executes the binary and returns stdout, stderr, and the error
	run := func(stdin string, args ...string) (string, string, error) {
		cmd := exec.Command(binaryPath, args...)
		if stdin != "" {
			cmd.Stdin = strings.NewReader(stdin)
		}
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		return stdout.String(), stderr.String(), err
	}

	BeforeAll(func() {
		dir := GinkgoT().TempDir()
		binaryPath = filepath.Join(dir, "stackplan")

		By("building the stackplan binary")
		cmd := exec.Command("go", "build", "-o", binaryPath, "github.com/stackplan/stackplan/cmd/stackplan")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "build failed: %s", output)

		templatePath = filepath.Join(dir, "topology.yaml")
		Expect(os.WriteFile(templatePath, []byte(validTemplate), 0644)).To(Succeed())

		brokenPath = filepath.Join(dir, "broken.yaml")
		Expect(os.WriteFile(brokenPath, []byte(brokenTemplate), 0644)).To(Succeed())
	})

	It("validates a well-formed template", func() {
		stdout, _, err := run("", "validate", templatePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("template is valid"))
	})

	It("reports violations with a non-zero exit code", func() {
		_, stderr, err := run("", "validate", brokenPath)
		Expect(err).To(HaveOccurred())

		exitErr, ok := err.(*exec.ExitError)
		Expect(ok).To(BeTrue())
		Expect(exitErr.ExitCode()).To(Equal(1))
		Expect(stderr).To(ContainSubstring("Phantom"))
	})

	It("emits a JSON plan in dependency order", func() {
		stdout, _, err := run("", "plan", templatePath)
		Expect(err).NotTo(HaveOccurred())

		var p struct {
			Steps []struct {
				LogicalID string `json:"logicalId"`
			} `json:"steps"`
		}
		Expect(json.Unmarshal([]byte(stdout), &p)).To(Succeed())
		Expect(p.Steps).To(HaveLen(2))
		Expect(p.Steps[0].LogicalID).To(Equal("Network"))
		Expect(p.Steps[1].LogicalID).To(Equal("AppSubnet"))
	})

	It("emits a YAML plan when asked", func() {
		stdout, _, err := run("", "plan", "-o", "yaml", templatePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("logicalId: Network"))
	})

	It("reads the template from stdin", func() {
		stdout, _, err := run(validTemplate, "plan", "-")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring(`"logicalId": "Network"`))
	})

	It("produces identical plans across repeated runs", func() {
		first, _, err := run("", "plan", templatePath)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 5; i++ {
			next, _, err := run("", "plan", templatePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(first))
		}
	})
})
