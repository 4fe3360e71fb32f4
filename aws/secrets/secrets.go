// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/pkg/errors"
)

// Resolver looks up secrets. If key is empty the whole secret string is
// returned, otherwise the secret is taken to be a JSON object and the value
// at key is returned.
type Resolver interface {
	Resolve(ctx context.Context, secretID, key string) (string, error)
}

// Manager is a Resolver backed by AWS Secrets Manager.
type Manager struct {
	sm secretsmanageriface.SecretsManagerAPI
}

// NewManager returns a Manager using a new session in region. An empty
// region defers to the AWS environment.
func NewManager(region string) (*Manager, error) {
	cfg := &aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return NewManagerFromClient(secretsmanager.New(sess)), nil
}

// NewManagerFromClient returns a Manager using client.
func NewManagerFromClient(client secretsmanageriface.SecretsManagerAPI) *Manager {
	return &Manager{sm: client}
}

// Resolve implements Resolver. Secret material never appears in the
// returned errors.
func (m *Manager) Resolve(ctx context.Context, secretID, key string) (string, error) {
	out, err := m.sm.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", errors.Wrapf(err, "getting secret value %s", secretID)
	}
	secret := aws.StringValue(out.SecretString)
	if out.SecretString == nil {
		secret = string(out.SecretBinary)
	}
	return field(secretID, secret, key)
}

// Static is a Resolver over a fixed map from secret ID to secret string, for
// local runs and tests.
type Static map[string]string

// Resolve implements Resolver.
func (s Static) Resolve(ctx context.Context, secretID, key string) (string, error) {
	secret, ok := s[secretID]
	if !ok {
		return "", errors.Errorf("no secret %s", secretID)
	}
	return field(secretID, secret, key)
}

func field(secretID, secret, key string) (string, error) {
	if key == "" {
		return secret, nil
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", errors.Errorf("secret %s is not a JSON object", secretID)
	}
	v, ok := fields[key]
	if !ok {
		return "", errors.Errorf("secret %s has no key %q", secretID, key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
