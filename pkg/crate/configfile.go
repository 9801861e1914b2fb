package crate

import (
	"crate/internal/s3config"
	"crate/internal/s3errors"
)

// NewConfigFromFiles builds a Config the way the AWS CLI and most SDKs
// bootstrap one: credentials (access key, secret key, session token) come
// from an INI credentials file, non-secret defaults (endpoint, region)
// come from a YAML profile file, and any explicit opts passed here take
// precedence over both. profilePath may be empty to skip the profile; the
// credentials file is required, and an empty credentialsPath or a profile
// without an access/secret key pair is an InvalidArgument error.
func NewConfigFromFiles(credentialsPath, profilePath, profileName string, opts ...ConfigOption) (Config, error) {
	var creds struct {
		accessKey, secretKey, sessionToken string
	}
	if credentialsPath != "" {
		c, err := s3config.LoadCredentialsFile(credentialsPath, profileName)
		if err != nil {
			return Config{}, err
		}
		creds.accessKey = c.AccessKeyID
		creds.secretKey = c.SecretAccessKey
		creds.sessionToken = c.SessionToken
	}

	var profile s3config.Profile
	if profilePath != "" {
		p, err := s3config.LoadProfile(profilePath)
		if err != nil {
			return Config{}, err
		}
		profile = p
	}

	if creds.accessKey == "" || creds.secretKey == "" {
		return Config{}, s3errors.InvalidArgument("no access/secret key found in %q for profile %q", credentialsPath, profileName)
	}

	allOpts := make([]ConfigOption, 0, len(opts)+2)
	if profile.Region != "" {
		allOpts = append(allOpts, WithRegion(profile.Region))
	}
	if creds.sessionToken != "" {
		allOpts = append(allOpts, WithSessionToken(creds.sessionToken))
	}
	allOpts = append(allOpts, opts...)

	return NewConfig(profile.Endpoint, creds.accessKey, creds.secretKey, allOpts...)
}
