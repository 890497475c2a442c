// Package config loads, normalizes, and validates dubsy configuration.
//
// Configuration lives in TOML (or YAML when the file ends in .yaml/.yml) and
// is layered over Default(). A .env file is honoured, and well-known
// environment variables such as OPENAI_API_KEY, DUBSY_TEMP_DIR, HOST, PORT,
// and DEBUG fill in or override values after decoding.
package config
