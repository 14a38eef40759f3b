package generation

import (
	"context"

	"scopehq/meridian/pkg/scoping"
)

// Fake is a scripted generator for tests and offline runs. With no script
// it derives a plausible decision from the evidence: policy hits mean
// in-scope, no evidence means insufficient-data.
type Fake struct {
	// Responses are returned in order; after they run out the fake falls
	// back to derivation.
	Responses []*Response

	// Err, when set, is returned by every call.
	Err error

	// Calls records the requests received.
	Calls []*Request

	next int
}

// Generate returns the next scripted response, or derives one from the
// evidence.
func (f *Fake) Generate(ctx context.Context, req *Request) (*Response, error) {
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.next < len(f.Responses) {
		r := f.Responses[f.next]
		f.next++
		return r, nil
	}

	if len(req.Evidence.PolicyChunks) == 0 {
		return &Response{
			Outcome:             scoping.OutcomeInsufficientData,
			Reasoning:           "no policy language was retrieved for this asset",
			MissingInformation:  []string{"commitment policy text covering this asset"},
			ClarifyingQuestions: []string{"What legal basis governs this asset?"},
		}, nil
	}

	chunkIDs := make([]string, 0, len(req.Evidence.PolicyChunks))
	for _, c := range req.Evidence.PolicyChunks {
		chunkIDs = append(chunkIDs, c.ChunkID)
	}
	return &Response{
		Outcome:       scoping.OutcomeInScope,
		Reasoning:     "retrieved policy language covers assets of this kind and domain",
		CitedChunkIDs: chunkIDs,
	}, nil
}
