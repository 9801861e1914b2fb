// Package s3config loads credentials and client defaults from disk. Both
// sources are optional; an explicit ClientConfig field set by the caller
// always wins over anything found here.
package s3config

import (
	"os"
	"path/filepath"

	"crate/internal/s3errors"
	"crate/internal/s3sign"

	"github.com/go-ini/ini"
)

// DefaultCredentialsProfile is the section name used when the caller
// doesn't specify one, matching the AWS CLI's own default.
const DefaultCredentialsProfile = "default"

// LoadCredentialsFile parses an AWS-style credentials INI file (normally
// ~/.aws/credentials) and returns the named profile's keys.
func LoadCredentialsFile(path, profile string) (s3sign.Credentials, error) {
	if profile == "" {
		profile = DefaultCredentialsProfile
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return s3sign.Credentials{}, s3errors.Wrap(s3errors.KindInvalidArgument, err, "reading credentials file %q", path)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return s3sign.Credentials{}, s3errors.Wrap(s3errors.KindInvalidArgument, err, "profile %q not found in %q", profile, path)
	}

	accessKey := section.Key("aws_access_key_id").String()
	secretKey := section.Key("aws_secret_access_key").String()
	if accessKey == "" || secretKey == "" {
		return s3sign.Credentials{}, s3errors.InvalidArgument("profile %q in %q is missing an access or secret key", profile, path)
	}

	return s3sign.Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    section.Key("aws_session_token").String(),
	}, nil
}

// DefaultCredentialsPath returns the conventional location of the AWS
// credentials file under the user's home directory.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", s3errors.Wrap(s3errors.KindInvalidArgument, err, "resolving home directory")
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}
