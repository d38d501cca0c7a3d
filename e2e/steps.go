package e2e

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/client"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
)

// RegisterSteps binds the credential flow steps to tc.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	sc.Step(`^a registry where self-signing is "([^"]*)"$`, tc.registryWithSelfSigning)
	sc.Step(`^"([^"]*)" holds the (issuer|validator) role$`, tc.holdsRole)
	sc.Step(`^the operator revokes the (issuer|validator) role from "([^"]*)"$`, tc.operatorRevokes)

	sc.Step(`^"([^"]*)" creates a credential for "([^"]*)" requiring (-?\d+) signatures$`, tc.createCredential)
	sc.Step(`^"([^"]*)" created a credential for "([^"]*)" requiring (\d+) signatures as "([^"]*)"$`, tc.createdNamedCredential)
	sc.Step(`^"([^"]*)" signs the credential$`, tc.signLast)
	sc.Step(`^"([^"]*)" signs credential "([^"]*)"$`, tc.signNamed)
	sc.Step(`^"([^"]*)" signs credential (\d+)$`, tc.signByID)

	sc.Step(`^the request succeeds$`, tc.requestSucceeds)
	sc.Step(`^the request fails with "([^"]*)"$`, tc.requestFailsWith)
	sc.Step(`^the credential status is "([^"]*)"$`, tc.credentialStatusIs)
	sc.Step(`^the credential id is (\d+)$`, tc.credentialIDIs)
	sc.Step(`^the signature count is (\d+)$`, tc.signatureCountIs)
	sc.Step(`^the credential is valid$`, func(ctx context.Context) error { return tc.validityIs(ctx, true) })
	sc.Step(`^the credential is not valid$`, func(ctx context.Context) error { return tc.validityIs(ctx, false) })
	sc.Step(`^the event feed is empty$`, tc.feedIsEmpty)
	sc.Step(`^"([^"]*)" sees (\d+) "([^"]*)" credentials?$`, tc.studentSees)
	sc.Step(`^"([^"]*)" has (\d+) credentials? awaiting signature$`, tc.pendingFor)
}

func (tc *TestContext) registryWithSelfSigning(policy string) error {
	p, err := models.ParseSelfSigningPolicy(policy)
	if err != nil {
		return err
	}
	tc.selfSigning = p
	return nil
}

// holdsRole bootstraps the role when the registry has not started yet and
// grants it through the operator routes otherwise.
func (tc *TestContext) holdsRole(ctx context.Context, name, capability string) error {
	w, err := tc.wallet(name)
	if err != nil {
		return err
	}
	if tc.registry == nil {
		if capability == "issuer" {
			tc.issuers = append(tc.issuers, w.addr)
		} else {
			tc.validators = append(tc.validators, w.addr)
		}
		return nil
	}
	_, err = tc.operator.GrantRole(ctx, domain.Capability(capability), w.addr)
	return err
}

func (tc *TestContext) operatorRevokes(ctx context.Context, capability, name string) error {
	if err := tc.start(); err != nil {
		return err
	}
	w, err := tc.wallet(name)
	if err != nil {
		return err
	}
	change, err := tc.operator.RevokeRole(ctx, domain.Capability(capability), w.addr)
	if err != nil {
		return err
	}
	if !change.Changed {
		return fmt.Errorf("expected %s to lose the %s role", name, capability)
	}
	return nil
}

func (tc *TestContext) createCredential(ctx context.Context, issuer, student string, required int) error {
	c, err := tc.as(ctx, issuer)
	if err != nil {
		return err
	}
	s, err := tc.wallet(student)
	if err != nil {
		return err
	}
	cred, err := c.CreateCredential(ctx, client.CreateParams{
		Student:            s.addr,
		RequiredSignatures: required,
		MetadataType:       "btech",
		Description:        "Computer Science",
	})
	tc.LastErr = err
	if err == nil {
		tc.credential = cred
	}
	return nil
}

func (tc *TestContext) createdNamedCredential(ctx context.Context, issuer, student string, required int, label string) error {
	if err := tc.createCredential(ctx, issuer, student, required); err != nil {
		return err
	}
	if tc.LastErr != nil {
		return fmt.Errorf("create %q: %w", label, tc.LastErr)
	}
	tc.named[label] = tc.credential.ID
	return nil
}

func (tc *TestContext) sign(ctx context.Context, signer string, id domain.CredentialID) error {
	c, err := tc.as(ctx, signer)
	if err != nil {
		return err
	}
	cred, err := c.SignCredential(ctx, id)
	tc.LastErr = err
	if err == nil {
		tc.credential = cred
	}
	return nil
}

func (tc *TestContext) signLast(ctx context.Context, signer string) error {
	if tc.credential == nil {
		return errors.New("no credential created yet")
	}
	return tc.sign(ctx, signer, tc.credential.ID)
}

func (tc *TestContext) signNamed(ctx context.Context, signer, label string) error {
	id, ok := tc.named[label]
	if !ok {
		return fmt.Errorf("no credential named %q", label)
	}
	return tc.sign(ctx, signer, id)
}

func (tc *TestContext) signByID(ctx context.Context, signer string, id int) error {
	return tc.sign(ctx, signer, domain.CredentialID(id))
}

func (tc *TestContext) requestSucceeds() error {
	if tc.LastErr != nil {
		return fmt.Errorf("expected success, got %w", tc.LastErr)
	}
	return nil
}

func (tc *TestContext) requestFailsWith(code string) error {
	if tc.LastErr == nil {
		return fmt.Errorf("expected %s, request succeeded", code)
	}
	if !dErrors.HasCode(tc.LastErr, dErrors.Code(code)) {
		return fmt.Errorf("expected %s, got %w", code, tc.LastErr)
	}
	return nil
}

func (tc *TestContext) credentialStatusIs(status string) error {
	if tc.credential == nil {
		return errors.New("no credential")
	}
	if tc.credential.Status != status {
		return fmt.Errorf("expected status %s, got %s", status, tc.credential.Status)
	}
	return nil
}

func (tc *TestContext) credentialIDIs(id int) error {
	if tc.credential == nil {
		return errors.New("no credential")
	}
	if tc.credential.ID != domain.CredentialID(id) {
		return fmt.Errorf("expected id %d, got %s", id, tc.credential.ID)
	}
	return nil
}

func (tc *TestContext) signatureCountIs(ctx context.Context, expected int) error {
	if tc.credential == nil {
		return errors.New("no credential")
	}
	count, err := tc.operator.SignatureCount(ctx, tc.credential.ID)
	if err != nil {
		return err
	}
	if count != expected {
		return fmt.Errorf("expected %d signatures, got %d", expected, count)
	}
	return nil
}

func (tc *TestContext) validityIs(ctx context.Context, expected bool) error {
	if tc.credential == nil {
		return errors.New("no credential")
	}
	valid, err := tc.operator.IsValid(ctx, tc.credential.ID)
	if err != nil {
		return err
	}
	if valid != expected {
		return fmt.Errorf("expected valid=%t, got %t", expected, valid)
	}
	return nil
}

func (tc *TestContext) feedIsEmpty(ctx context.Context) error {
	if err := tc.start(); err != nil {
		return err
	}
	page, err := tc.operator.Events(ctx, 0, 10)
	if err != nil {
		return err
	}
	if len(page.Events) != 0 || page.LatestSequence != 0 {
		return fmt.Errorf("expected an empty feed, got %d events up to %d", len(page.Events), page.LatestSequence)
	}
	return nil
}

func (tc *TestContext) studentSees(ctx context.Context, student string, expected int, status string) error {
	c, err := tc.as(ctx, student)
	if err != nil {
		return err
	}
	seq, err := tc.latestSequence(ctx)
	if err != nil {
		return err
	}
	page, err := c.MyCredentials(ctx, "student", client.ListParams{Status: status, MinSequence: seq})
	if err != nil {
		return err
	}
	if len(page.Credentials) != expected {
		return fmt.Errorf("expected %d %s credentials, got %d", expected, status, len(page.Credentials))
	}
	return nil
}

func (tc *TestContext) pendingFor(ctx context.Context, validator string, expected int) error {
	c, err := tc.as(ctx, validator)
	if err != nil {
		return err
	}
	seq, err := tc.latestSequence(ctx)
	if err != nil {
		return err
	}
	page, err := c.PendingSignatures(ctx, client.ListParams{MinSequence: seq})
	if err != nil {
		return err
	}
	if len(page.Credentials) != expected {
		return fmt.Errorf("expected %d pending for %s, got %d", expected, validator, len(page.Credentials))
	}
	return nil
}
