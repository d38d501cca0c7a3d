package models

// Audit event actions describe what operation occurred.
const (
	AuditActionCredentialCreated   = "credential_created"   // issuer minted a pending credential
	AuditActionCredentialSigned    = "credential_signed"    // validator co-signed
	AuditActionCredentialValidated = "credential_validated" // threshold reached by this signature
	AuditActionMutationDenied      = "credential_mutation_denied"
)

// Audit decisions record the outcome of the action.
const (
	AuditDecisionGranted = "granted"
	AuditDecisionDenied  = "denied"
)

// Audit reasons explain a denial.
const (
	AuditReasonMissingIssuer    = "missing_issuer_capability"
	AuditReasonMissingValidator = "missing_validator_capability"
	AuditReasonSelfSigning      = "self_signing_forbidden"
	AuditReasonAlreadySigned    = "already_signed"
)
