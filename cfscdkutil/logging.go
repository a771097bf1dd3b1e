package cfscdkutil

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// LogInfo adds an INFO level annotation to the construct. These show up during `cdk synth`.
func LogInfo(scope constructs.Construct, constructID, format string, args ...any) {
	awscdk.Annotations_Of(scope).AddInfo(jsii.String(annotate(scope, constructID, format, args...)))
}

// LogWarning adds a WARNING level annotation to the construct.
func LogWarning(scope constructs.Construct, constructID, format string, args ...any) {
	awscdk.Annotations_Of(scope).AddWarning(jsii.String(annotate(scope, constructID, format, args...)))
}

// annotate prefixes the message with the construct id unless the path already ends with it.
func annotate(scope constructs.Construct, constructID, format string, args ...any) string {
	message := fmt.Sprintf(format, args...)
	if constructID == "" {
		return message
	}

	path := *scope.Node().Path()
	if strings.HasSuffix(path, "/"+constructID) || path == constructID {
		return message
	}

	return fmt.Sprintf("[%s] %s", constructID, message)
}
