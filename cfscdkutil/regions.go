package cfscdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
)

// CloudFrontRegion is the only region where CloudFront scoped WAF ACLs, viewer
// certificates and Lambda@Edge functions can be created.
const CloudFrontRegion = "us-east-1"

var knownRegions = []struct {
	name  string
	ident string
}{
	{"us-east-1", "use1"},
	{"us-east-2", "use2"},
	{"us-west-2", "usw2"},
	{"eu-west-1", "euw1"},
	{"eu-central-1", "euc1"},
	{"eu-north-1", "eun1"},
	{"ap-southeast-1", "apse1"},
	{"ap-southeast-2", "apse2"},
	{"ap-northeast-1", "apne1"},
}

// KnownRegions returns the regions offered when initializing a project.
func KnownRegions() []string {
	out := make([]string, 0, len(knownRegions))
	for _, r := range knownRegions {
		out = append(out, r.name)
	}
	return out
}

// RegionIdentFor returns the short identifier used in stack names for a known region,
// or an empty string if the region is not known.
func RegionIdentFor(region string) string {
	for _, r := range knownRegions {
		if r.name == region {
			return r.ident
		}
	}
	return ""
}

// InRegion reports whether the stack of scope is known to be deployed to region.
// Environment agnostic stacks are assumed to match.
func InRegion(scope constructs.Construct, region string) bool {
	stackRegion := awscdk.Stack_Of(scope).Region()
	if *awscdk.Token_IsUnresolved(stackRegion) {
		return true
	}
	return *stackRegion == region
}
