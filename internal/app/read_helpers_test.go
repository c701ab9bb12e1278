package app

import "testing"

func TestResolveApplyMode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		dryRun    bool
		fix       bool
		wantApply bool
		wantErr   bool
	}{
		{name: "default is preview"},
		{name: "explicit dry-run stays preview", dryRun: true},
		{name: "fix applies", fix: true, wantApply: true},
		{name: "both flags refused", dryRun: true, fix: true, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			apply, err := resolveApplyMode(tc.dryRun, tc.fix)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error for contradictory flags")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveApplyMode: %v", err)
			}
			if apply != tc.wantApply {
				t.Fatalf("apply = %t, want %t", apply, tc.wantApply)
			}
		})
	}
}
