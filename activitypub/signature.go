package activitypub

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/tubefed/tubefed/domain"
)

// CheckSignature is the inbound authentication gate. It extracts the
// claimed signing actor from the Signature header's keyId, resolves it,
// and verifies the body digest and HTTP signature against the actor's
// public key. If verification fails with a cached key, the actor is
// re-fetched exactly once (the key may have been rotated, or the keyId
// may belong to a different owner document) and verification retried.
func (r *Resolver) CheckSignature(req *http.Request, body []byte) (*domain.Actor, error) {
	sigHeader := req.Header.Get("Signature")
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: missing Signature header", ErrAuthentication)
	}

	keyId, err := extractKeyId(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	actorURI := KeyIdToActorURI(keyId)

	if err := VerifyDigest(body, req.Header.Get("Digest")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	actor, err := r.ResolveActor(actorURI)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve signer %s: %v", ErrAuthentication, actorURI, err)
	}

	if _, err := VerifyRequest(req, actor.PublicKeyPem); err != nil {
		// One forced refresh: the cached key may be outdated.
		log.Printf("Signature: verification failed for %s with cached key, refetching once", actorURI)
		actor, err = r.RefreshActor(actorURI)
		if err != nil {
			return nil, fmt.Errorf("%w: signer refetch failed: %v", ErrAuthentication, err)
		}
		if _, err := VerifyRequest(req, actor.PublicKeyPem); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
	}

	return actor, nil
}

// extractKeyId pulls the keyId parameter out of a Signature header of
// the form: keyId="https://...#main-key",algorithm="rsa-sha256",...
func extractKeyId(sigHeader string) (string, error) {
	for _, part := range strings.Split(sigHeader, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "keyId=") {
			continue
		}
		value := strings.TrimPrefix(part, "keyId=")
		value = strings.Trim(value, `"`)
		if value == "" {
			break
		}
		return value, nil
	}
	return "", fmt.Errorf("signature header carries no keyId")
}
