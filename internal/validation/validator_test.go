package validation

import "testing"

func TestValidateOwner(t *testing.T) {
	tests := []struct {
		owner string
		valid bool
	}{
		{"octocat", true},
		{"github-user", true},
		{"a", true},
		{"User123", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"has space", false},
		{"under_score", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 40 chars
	}

	for _, test := range tests {
		err := ValidateOwner(test.owner)
		if test.valid && err != nil {
			t.Errorf("ValidateOwner(%q) = %v, expected valid", test.owner, err)
		}
		if !test.valid && err == nil {
			t.Errorf("ValidateOwner(%q) passed, expected error", test.owner)
		}
	}
}

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		repo  string
		valid bool
	}{
		{"gitgauge", true},
		{"my-repo.go", true},
		{"under_score", true},
		{"", false},
		{".", false},
		{"..", false},
		{"has space", false},
		{"slash/name", false},
	}

	for _, test := range tests {
		err := ValidateRepoName(test.repo)
		if test.valid && err != nil {
			t.Errorf("ValidateRepoName(%q) = %v, expected valid", test.repo, err)
		}
		if !test.valid && err == nil {
			t.Errorf("ValidateRepoName(%q) passed, expected error", test.repo)
		}
	}
}

func TestValidateRef(t *testing.T) {
	tests := []struct {
		ref   string
		valid bool
	}{
		{"main", true},
		{"feature/login", true},
		{"v1.0.0", true},
		{"", false},
		{"/leading", false},
		{"trailing/", false},
		{"dot..dot", false},
		{"has space", false},
		{"care^t", false},
	}

	for _, test := range tests {
		err := ValidateRef(test.ref)
		if test.valid && err != nil {
			t.Errorf("ValidateRef(%q) = %v, expected valid", test.ref, err)
		}
		if !test.valid && err == nil {
			t.Errorf("ValidateRef(%q) passed, expected error", test.ref)
		}
	}
}

func TestValidateCoordinates(t *testing.T) {
	if err := ValidateCoordinates("octocat", "hello-world", "main"); err != nil {
		t.Errorf("Expected valid coordinates, got %v", err)
	}
	if err := ValidateCoordinates("", "hello-world", "main"); err == nil {
		t.Error("Expected error for empty owner")
	}
	if err := ValidateCoordinates("octocat", "", "main"); err == nil {
		t.Error("Expected error for empty repo")
	}
	if err := ValidateCoordinates("octocat", "hello-world", "bad ref"); err == nil {
		t.Error("Expected error for invalid ref")
	}
}
