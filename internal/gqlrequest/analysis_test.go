package gqlrequest

import (
	"context"
	"encoding/json"
	"testing"
)

func TestAnalyzeEnvelope_Metadata(t *testing.T) {
	tests := []struct {
		name              string
		query             string
		operationName     string
		wantType          string
		wantFields        int
		wantDepth         int
		wantVars          int
		wantParseErr      bool
		wantSelectionErr  bool
		wantResolvedName  string
		wantOperationHash bool
	}{
		{
			name: "simple query",
			query: `query {
				users {
					id
					name
				}
			}`,
			wantType:          "query",
			wantFields:        3,
			wantDepth:         2,
			wantResolvedName:  "<anonymous>",
			wantOperationHash: true,
		},
		{
			name: "named operation with variables",
			query: `query CountryUsers($onlyAdmins: Boolean, $pattern: String) {
				countries {
					name
					users(onlyAdmins: $onlyAdmins) {
						companies(nameLike: $pattern) { name }
					}
				}
			}`,
			operationName:     "CountryUsers",
			wantType:          "query",
			wantFields:        5,
			wantDepth:         4,
			wantVars:          2,
			wantResolvedName:  "CountryUsers",
			wantOperationHash: true,
		},
		{
			name: "multiple operations without name is unresolved",
			query: `
				query Users { users { id } }
				query Countries { countries { id name } }
			`,
			wantSelectionErr: true,
		},
		{
			name:             "unknown operation name",
			query:            `query Users { users { id } }`,
			operationName:    "Countries",
			wantSelectionErr: true,
		},
		{
			name:         "malformed query",
			query:        `query { users { `,
			wantParseErr: true,
		},
		{
			name:  "empty query",
			query: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeEnvelope(Envelope{
				Query:         tt.query,
				OperationName: tt.operationName,
			})
			if (analysis.ParseError != nil) != tt.wantParseErr {
				t.Fatalf("ParseError presence = %v, want %v (err=%v)", analysis.ParseError != nil, tt.wantParseErr, analysis.ParseError)
			}
			if (analysis.SelectionError != nil) != tt.wantSelectionErr {
				t.Fatalf("SelectionError presence = %v, want %v (err=%v)", analysis.SelectionError != nil, tt.wantSelectionErr, analysis.SelectionError)
			}
			if tt.wantParseErr || tt.wantSelectionErr {
				return
			}
			if analysis.OperationType != tt.wantType {
				t.Fatalf("OperationType = %q, want %q", analysis.OperationType, tt.wantType)
			}
			if analysis.FieldCount != tt.wantFields {
				t.Fatalf("FieldCount = %d, want %d", analysis.FieldCount, tt.wantFields)
			}
			if analysis.SelectionDepth != tt.wantDepth {
				t.Fatalf("SelectionDepth = %d, want %d", analysis.SelectionDepth, tt.wantDepth)
			}
			if analysis.VariableCount != tt.wantVars {
				t.Fatalf("VariableCount = %d, want %d", analysis.VariableCount, tt.wantVars)
			}
			if analysis.OperationName != tt.wantResolvedName {
				t.Fatalf("OperationName = %q, want %q", analysis.OperationName, tt.wantResolvedName)
			}
			if (analysis.OperationHash != "") != tt.wantOperationHash {
				t.Fatalf("OperationHash presence = %v, want %v", analysis.OperationHash != "", tt.wantOperationHash)
			}
		})
	}
}

func TestAnalyzeEnvelope_Trail(t *testing.T) {
	query := `
		query Directory($onlyAdmins: Boolean = false, $pattern: String) {
			countries {
				users(onlyAdmins: $onlyAdmins) {
					...Employer
				}
			}
		}
		fragment Employer on User {
			companies(nameLike: $pattern) { country { name } }
		}
	`
	analysis := AnalyzeEnvelope(Envelope{
		Query:        query,
		VariablesRaw: json.RawMessage(`{"pattern":"Ac"}`),
	})
	if analysis.TrailError != nil {
		t.Fatalf("TrailError = %v", analysis.TrailError)
	}

	users := analysis.Trail.Field("countries").Field("users")
	if users == nil {
		t.Fatalf("expected countries.users in trail, got %s", analysis.Trail)
	}
	if got := users.Args()["onlyAdmins"]; got != false {
		t.Fatalf("onlyAdmins = %v, want default false", got)
	}
	companies := users.Field("companies")
	if companies == nil || companies.Args()["nameLike"] != "Ac" {
		t.Fatalf("companies args = %v, want nameLike from variables", companies.Args())
	}
	if companies.Field("country") == nil {
		t.Fatalf("expected companies.country in trail")
	}
}

func TestAnalyzeEnvelope_BadVariables(t *testing.T) {
	analysis := AnalyzeEnvelope(Envelope{
		Query:        `{ users { id } }`,
		VariablesRaw: json.RawMessage(`[1, 2]`),
	})
	if analysis.DecodeError == nil {
		t.Fatalf("expected decode error for non-object variables")
	}
	if analysis.Operation == nil {
		t.Fatalf("expected the operation to still be analyzed")
	}
}

func TestAnalyzeEnvelope_FragmentCycleSafe(t *testing.T) {
	query := `
		fragment A on User {
			id
			...B
		}
		fragment B on User {
			name
			...A
		}
		query {
			users {
				...A
			}
		}
	`
	analysis := AnalyzeEnvelope(Envelope{Query: query})
	if analysis.ParseError != nil || analysis.SelectionError != nil {
		t.Fatalf("unexpected parse/selection errors: parse=%v selection=%v", analysis.ParseError, analysis.SelectionError)
	}
	if analysis.FieldCount != 3 {
		t.Fatalf("FieldCount = %d, want %d", analysis.FieldCount, 3)
	}
	if analysis.TrailError != nil {
		t.Fatalf("TrailError = %v", analysis.TrailError)
	}
}

func TestAnalyzeEnvelope_FragmentReusedDeeper(t *testing.T) {
	inline := AnalyzeEnvelope(Envelope{Query: `{ users { manager { manager { manager { manager { manager { name } } } } } } }`})
	reused := AnalyzeEnvelope(Envelope{Query: `
		query {
			users {
				...Chain
				manager { manager { manager { ...Chain } } }
			}
		}
		fragment Chain on User { manager { manager { name } } }
	`})
	if inline.SelectionDepth != 7 {
		t.Fatalf("inline SelectionDepth = %d, want 7", inline.SelectionDepth)
	}
	if reused.SelectionDepth != inline.SelectionDepth {
		t.Fatalf("reused fragment SelectionDepth = %d, want %d", reused.SelectionDepth, inline.SelectionDepth)
	}
	// users, 3 managers, and Chain's 3 fields at both spread sites.
	if reused.FieldCount != 10 {
		t.Fatalf("FieldCount = %d, want 10", reused.FieldCount)
	}
}

func TestAnalyzeEnvelope_UnknownFragment(t *testing.T) {
	analysis := AnalyzeEnvelope(Envelope{Query: `{ users { ...Missing } }`})
	if analysis.CanonicalizeErr == nil {
		t.Fatalf("expected canonicalize error for unknown fragment")
	}
	if analysis.TrailError == nil {
		t.Fatalf("expected trail error for unknown fragment")
	}
}

func TestOperationHash_WhitespaceInsensitive(t *testing.T) {
	query1 := `
		query GetUsers {
			users { id name }
		}
	`
	query2 := `query GetUsers { users { id   name } }`

	a := AnalyzeEnvelope(Envelope{Query: query1, OperationName: "GetUsers"})
	b := AnalyzeEnvelope(Envelope{Query: query2, OperationName: "GetUsers"})
	if a.OperationHash == "" || b.OperationHash == "" {
		t.Fatalf("expected non-empty operation hashes")
	}
	if a.OperationHash != b.OperationHash {
		t.Fatalf("hash mismatch for equivalent queries: %q vs %q", a.OperationHash, b.OperationHash)
	}
}

func TestOperationHash_MultiOperationSelection(t *testing.T) {
	query := `
		query A { users { id } }
		query B { countries { id name } }
	`
	a := AnalyzeEnvelope(Envelope{Query: query, OperationName: "A"})
	b := AnalyzeEnvelope(Envelope{Query: query, OperationName: "B"})
	if a.OperationHash == "" || b.OperationHash == "" {
		t.Fatalf("expected non-empty hashes for selected operations")
	}
	if a.OperationHash == b.OperationHash {
		t.Fatalf("expected different hashes for different selected operations")
	}
}

func TestFramedHashDisambiguatesTuples(t *testing.T) {
	if framedSHA256("ab", "c") == framedSHA256("a", "bc") {
		t.Fatalf("expected framed hash to disambiguate tuple boundaries")
	}
}

func TestAnalysisContext(t *testing.T) {
	outer := AnalyzeEnvelope(Envelope{Query: "{ users { id } }"})
	ctx := WithAnalysis(context.Background(), outer)
	if got := AnalysisFromContext(ctx); got != outer {
		t.Fatalf("AnalysisFromContext = %p, want %p", got, outer)
	}
	if got := AnalysisFromContext(WithAnalysis(ctx, nil)); got != outer {
		t.Fatalf("nil analysis masked the outer one")
	}
	if got := AnalysisFromContext(context.Background()); got != nil {
		t.Fatalf("empty context returned %+v", got)
	}
}
