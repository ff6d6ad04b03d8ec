package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Schema returns the JSON schema of the settings file, for editors and
// for host runtimes that render a settings UI from it.
func Schema() (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(&Settings{})
	schema.Title = "maclaunch settings"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal settings schema")
	}
	return string(out), nil
}
