// Package config loads, normalizes, and validates youdub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY, HF_TOKEN, and VIDEO_ENCODER. The Config type centralizes
// every knob the stages and the fleet orchestrator need so that the root
// folder, model choices, and external service credentials are discovered in
// one pass.
package config
