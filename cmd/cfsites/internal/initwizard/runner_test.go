package initwizard_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/advdv/cfsites/cmd/cfsites/internal/initwizard"
	"github.com/charmbracelet/huh"
)

func TestAccessibleRunner(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	site := "Main"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Site").Value(&site).Validate(initwizard.ValidateName),
		),
	)

	err := initwizard.NewAccessibleRunner(&output, strings.NewReader("Docs\n")).Run(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site != "Docs" {
		t.Errorf("site = %q, want Docs", site)
	}
	if !strings.Contains(output.String(), "Site") {
		t.Errorf("prompt missing from output %q", output.String())
	}
}

func TestDefaultsRunner(t *testing.T) {
	t.Parallel()

	var result initwizard.Result
	form := initwizard.NewFormBuilder().Build("acme", &result)

	if err := (initwizard.DefaultsRunner{}).Run(form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != initwizard.DefaultResult("acme") {
		t.Errorf("result = %+v, want the defaults", result)
	}
}
