package schema

import "strings"

// Category is the broad classification of a resource type
type Category string

const (
	CategoryCompute  Category = "compute"
	CategoryStorage  Category = "storage"
	CategoryNetwork  Category = "network"
	CategorySecurity Category = "security"
	CategoryOther    Category = "other"
)

var categoryPrefixes = []struct {
	category Category
	prefixes []string
}{
	// Network checked before compute: the specific EC2 network types would
	// otherwise match the broader AWS::EC2:: compute prefix.
	{CategoryNetwork, []string{
		"AWS::EC2::VPC", "AWS::EC2::Subnet", "AWS::EC2::Route",
		"AWS::EC2::InternetGateway", "AWS::EC2::NatGateway", "AWS::EC2::EIP",
		"AWS::ElasticLoadBalancing::",
	}},
	{CategorySecurity, []string{
		"AWS::EC2::SecurityGroup", "AWS::IAM::", "AWS::KMS::", "AWS::SecretsManager::",
	}},
	{CategoryStorage, []string{
		"AWS::S3::", "AWS::EFS::", "AWS::DynamoDB::", "AWS::RDS::", "AWS::EC2::Volume",
	}},
	{CategoryCompute, []string{
		"AWS::EC2::", "AWS::Lambda::", "AWS::AutoScaling::",
	}},
}

// Categorize determines the category of a resource type from its name
func Categorize(resourceType string) Category {
	for _, group := range categoryPrefixes {
		for _, prefix := range group.prefixes {
			if strings.HasPrefix(resourceType, prefix) {
				return group.category
			}
		}
	}
	return CategoryOther
}
