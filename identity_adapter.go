package lodging

import "time"

var _ Identity = IdentityObject{}

// IdentityObject is the concrete identity produced by assertion
// verification. It is request-scoped and never persisted.
type IdentityObject struct {
	id       string
	email    string
	verified bool
	issuedAt time.Time
}

// NewIdentity builds an IdentityObject from verified assertion claims.
func NewIdentity(id, email string, verified bool, issuedAt time.Time) IdentityObject {
	return IdentityObject{
		id:       id,
		email:    email,
		verified: verified,
		issuedAt: issuedAt,
	}
}

// ID returns the provider subject identifier.
func (i IdentityObject) ID() string {
	return i.id
}

// Email returns the verified email address.
func (i IdentityObject) Email() string {
	return i.email
}

// EmailVerified reports whether the provider confirmed the email.
func (i IdentityObject) EmailVerified() bool {
	return i.verified
}

// IssuedAt returns the verification time claimed by the provider.
func (i IdentityObject) IssuedAt() time.Time {
	return i.issuedAt
}

// AccountIdentity adapts an Account into the Identity interface for token
// issuance.
type AccountIdentity struct {
	account *Account
}

// NewIdentityFromAccount returns an Identity adapter for the provided account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return AccountIdentity{account: account}
}

// ID returns the account's provider subject identifier.
func (a AccountIdentity) ID() string {
	if a.account == nil {
		return ""
	}
	return a.account.SubjectID
}

// Email returns the account's email address.
func (a AccountIdentity) Email() string {
	if a.account == nil {
		return ""
	}
	return a.account.Email
}

// EmailVerified reports the persisted verification flag.
func (a AccountIdentity) EmailVerified() bool {
	if a.account == nil {
		return false
	}
	return a.account.EmailVerified
}

// IssuedAt returns the account creation time.
func (a AccountIdentity) IssuedAt() time.Time {
	if a.account == nil || a.account.CreatedAt == nil {
		return time.Time{}
	}
	return *a.account.CreatedAt
}
