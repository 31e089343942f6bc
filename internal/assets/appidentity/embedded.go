package appidentityassets

import _ "embed"

// YAML is the embedded application identity used when no external
// `.fulmen/app.yaml` is discoverable (standalone binaries, tests).
//
//go:embed app.yaml
var YAML []byte
