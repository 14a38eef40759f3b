// Meridian is a compliance scoping decision engine.
//
// It decides whether data assets fall in or out of scope for compliance
// commitments, combining policy retrieval, prior human feedback, and
// confidence scoring into an auditable, checkpointed workflow.
//
// Usage:
//
//	# Ingest a commitment policy document
//	meridian ingest policies/gdpr-retention.md
//
//	# Watch a directory and re-ingest on change
//	meridian ingest policies/ --watch
//
//	# Decide whether an asset is in scope
//	meridian decide --asset asset://database.customer_data.production --commitment gdpr-retention
//
//	# Rate a decision
//	meridian feedback submit --decision <id> --rating up --reason "matches our data map"
//
//	# Audit a past decision
//	meridian checkpoints history <session-id>
//	meridian checkpoints replay <session-id>
package main

func main() {
	Execute()
}
