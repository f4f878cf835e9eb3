package manifest

// manifestSchema is the JSON schema every manifest document must satisfy
// before the struct-level checks in Validate run. It catches shape errors
// (wrong types, unknown fields, missing sections) with positional messages.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "pinbuild package manifest",
  "type": "object",
  "required": ["name", "version", "source"],
  "additionalProperties": false,
  "properties": {
    "name": {
      "type": "string",
      "pattern": "^[a-z0-9][a-z0-9._-]*$"
    },
    "version": {
      "type": "string",
      "minLength": 1
    },
    "source": {
      "type": "object",
      "required": ["forge", "owner", "repo", "rev"],
      "additionalProperties": false,
      "properties": {
        "forge": {
          "type": "string",
          "enum": ["github", "gitlab", "codeberg", "sourcehut"]
        },
        "owner": {"type": "string", "minLength": 1},
        "repo": {"type": "string", "minLength": 1},
        "rev": {"type": "string", "minLength": 1},
        "hash": {"type": "string", "pattern": "^sha256-[A-Za-z0-9+/]+=*$"}
      }
    },
    "vendorHash": {
      "type": "string",
      "pattern": "^sha256-[A-Za-z0-9+/]+=*$"
    },
    "build": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "subPackages": {
          "type": "array",
          "items": {"type": "string", "minLength": 1},
          "uniqueItems": true
        },
        "ldflags": {
          "type": "array",
          "items": {"type": "string"}
        },
        "tags": {
          "type": "array",
          "items": {"type": "string", "minLength": 1}
        },
        "versionVar": {"type": "string"},
        "cgo": {"type": "boolean"}
      }
    },
    "install": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "binaryName": {"type": "string", "minLength": 1},
        "completions": {
          "type": "array",
          "items": {"type": "string", "enum": ["bash", "zsh", "fish"]},
          "uniqueItems": true
        }
      }
    },
    "meta": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "description": {"type": "string"},
        "homepage": {"type": "string"},
        "license": {"type": "string"},
        "maintainers": {
          "type": "array",
          "items": {"type": "string"}
        }
      }
    }
  }
}`
