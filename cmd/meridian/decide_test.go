package main

import "testing"

func TestValidateDecideFlags(t *testing.T) {
	tests := []struct {
		name       string
		asset      string
		commitment string
		query      string
		session    string
		wantErr    bool
	}{
		{
			name:       "asset and commitment",
			asset:      "database.customer_data.production",
			commitment: "gdpr-retention",
		},
		{
			name:  "asset and query",
			asset: "database.customer_data.production",
			query: "retention of customer personal data",
		},
		{
			name:    "session alone resumes",
			session: "4f1c9c1e-8a27-4c5a-9a65-b6d9c9f6f3a2",
		},
		{
			name:       "missing asset",
			commitment: "gdpr-retention",
			wantErr:    true,
		},
		{
			name:    "asset without commitment or query",
			asset:   "database.customer_data.production",
			wantErr: true,
		},
		{
			name:    "nothing at all",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDecideFlags(tt.asset, tt.commitment, tt.query, tt.session)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDecideFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecideCommandFlags(t *testing.T) {
	for _, flag := range []string{"asset", "commitment", "query", "session"} {
		if decideCmd.Flags().Lookup(flag) == nil {
			t.Errorf("decide command missing --%s flag", flag)
		}
	}
}
