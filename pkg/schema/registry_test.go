package schema

import (
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	registry, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}

	if registry.Size() == 0 {
		t.Fatal("expected embedded registry to contain schemas")
	}

	vpc, found := registry.Lookup("AWS::EC2::VPC")
	if !found {
		t.Fatal("expected AWS::EC2::VPC to be registered")
	}

	if vpc.Category != CategoryNetwork {
		t.Errorf("expected network category for VPC, got %s", vpc.Category)
	}

	if !vpc.HasProperty("CidrBlock") {
		t.Error("expected CidrBlock to be a known VPC property")
	}

	if _, found := registry.Lookup("AWS::Nope::Missing"); found {
		t.Error("expected lookup miss for unknown type")
	}
}

func TestLoadEmbeddedSharesRegistry(t *testing.T) {
	first, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	second, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	if first != second {
		t.Error("expected LoadEmbedded to return the shared registry")
	}
}

func TestHasAttribute(t *testing.T) {
	s := &ResourceSchema{
		Type:       "AWS::EC2::EIP",
		Attributes: []string{"AllocationId", "PublicIp"},
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact match", "AllocationId", true},
		{"second attribute", "PublicIp", true},
		{"unknown attribute", "PrivateIp", false},
		{"nested path with known root", "AllocationId.Deep", true},
		{"nested path with unknown root", "Missing.Deep", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HasAttribute(tt.path); got != tt.want {
				t.Errorf("HasAttribute(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()

	s := &ResourceSchema{Type: "AWS::EC2::VPC"}
	if err := registry.Register(s); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if err := registry.Register(s); err == nil {
		t.Error("expected error registering duplicate type")
	}

	if err := registry.Register(&ResourceSchema{}); err == nil {
		t.Error("expected error registering schema without type")
	}
}

func TestTypesSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"C::C::C", "A::A::A", "B::B::B"} {
		if err := registry.Register(&ResourceSchema{Type: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	types := registry.Types()
	want := []string{"A::A::A", "B::B::B", "C::C::C"}
	for i, name := range want {
		if types[i] != name {
			t.Errorf("Types()[%d] = %s, want %s", i, types[i], name)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		resourceType string
		want         Category
	}{
		{"AWS::EC2::Instance", CategoryCompute},
		{"AWS::Lambda::Function", CategoryCompute},
		{"AWS::EC2::VPC", CategoryNetwork},
		{"AWS::EC2::SubnetRouteTableAssociation", CategoryNetwork},
		{"AWS::EC2::SecurityGroup", CategorySecurity},
		{"AWS::IAM::Role", CategorySecurity},
		{"AWS::S3::Bucket", CategoryStorage},
		{"AWS::EC2::Volume", CategoryStorage},
		{"AWS::CloudWatch::Alarm", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.resourceType, func(t *testing.T) {
			if got := Categorize(tt.resourceType); got != tt.want {
				t.Errorf("Categorize(%s) = %s, want %s", tt.resourceType, got, tt.want)
			}
		})
	}
}
