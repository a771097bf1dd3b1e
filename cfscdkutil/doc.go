// Package cfscdkutil provides utilities for the cfsites CDK application.
//
// This package includes helpers for:
//   - Reading and validating CDK context into a Config
//   - Creating qualified stacks and wiring project stacks onto the common stack
//   - Selecting which project stacks get synthesized
//   - Synth-time logging through construct annotations
//   - Reproducible Go Lambda builds
package cfscdkutil
