package constants

import "errors"

// Configuration errors.
var (
	ErrNoEnvironmentConfigured = errors.New("no environment configured, use 'dataverse config set environment <url>' or --environment")
	ErrNoCredentials           = errors.New("no credentials configured, run 'dataverse login' or set client ID and secret")
	ErrConfigNotFound          = errors.New("configuration file not found")
)

// CLI validation errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format, expected table, json or yaml")
	ErrValueRequired       = errors.New("a value is required")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
)

// External tool errors.
var (
	ErrPacNotFound   = errors.New("pac CLI not found in PATH, install the Power Platform CLI to list environments")
	ErrPacListFailed = errors.New("pac admin list failed")
)
