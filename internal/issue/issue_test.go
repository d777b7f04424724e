// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(issues))
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", v.Id())
		}
	}
}

func TestIssue_ExtLinksAreCloned(t *testing.T) {
	iss := Get(RuntimeNotAvailableId)
	if iss == nil {
		t.Fatal("Get(RuntimeNotAvailableId) returned nil")
	}

	links := iss.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	original := links[0]
	links[0] = "modified"
	if iss.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, _ string) (string, error) {
		return in, nil
	}

	rendered, err := Get(RuntimeNotAvailableId).Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "No container runtime available") {
		t.Error("rendered output should contain the title")
	}
	if !strings.Contains(rendered, "## See also") {
		t.Error("rendered output should list links")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Id
	}{
		{"nil", nil, 0},
		{"distribution", &NotFoundError{Kind: KindDistribution, Name: "x"}, UnsupportedDistributionId},
		{"blueprint", &NotFoundError{Kind: KindBlueprint, Name: "x"}, BlueprintNotFoundId},
		{"environment", &NotFoundError{Kind: KindEnvironment, Name: "x"}, EnvironmentNotFoundId},
		{"exists", &AlreadyExistsError{Kind: KindEnvironment, Name: "x"}, EnvironmentExistsId},
		{"transport", &TransportError{URL: "u", Destination: "d", Err: ErrTransport}, DownloadFailedId},
		{"unsupported", &UnsupportedError{Runtime: "ctr", Operation: "start"}, UnsupportedOperationId},
		{"tool", &ToolError{Command: "wsl", ExitCode: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %d, want %d", got, tt.want)
			}
		})
	}
}
