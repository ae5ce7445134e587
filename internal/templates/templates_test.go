package templates

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("rendered output is not JSON: %v\n%s", err, payload)
	}
	return out
}

func TestRenderHostJSON(t *testing.T) {
	out, err := RenderHostJSON(HostData{Executable: "handler", Forward: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	host := decode(t, out)
	handler := host["customHandler"].(map[string]any)
	if handler["enableForwardingHttpRequest"] != true {
		t.Fatalf("expected forwarding enabled: %v", handler)
	}
	desc := handler["description"].(map[string]any)
	if desc["defaultExecutablePath"] != "handler" {
		t.Fatalf("unexpected executable: %v", desc)
	}
	queues := host["extensions"].(map[string]any)["queues"].(map[string]any)
	if queues["maxDequeueCount"] != float64(DefaultMaxDequeueCount) {
		t.Fatalf("unexpected queue settings: %v", queues)
	}
}

func TestRenderHostJSONRequiresExecutable(t *testing.T) {
	if _, err := RenderHostJSON(HostData{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderHTTPFunctionDefaultsMethods(t *testing.T) {
	out, err := RenderHTTPFunction(HTTPFunctionData{Route: "{*path}"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	fn := decode(t, out)
	bindings := fn["bindings"].([]any)
	trigger := bindings[0].(map[string]any)
	if trigger["route"] != "{*path}" || trigger["authLevel"] != "anonymous" {
		t.Fatalf("unexpected trigger: %v", trigger)
	}
	var methods []string
	for _, m := range trigger["methods"].([]any) {
		methods = append(methods, m.(string))
	}
	if diff := cmp.Diff(HTTPMethods, methods); diff != "" {
		t.Fatalf("methods mismatch (-want +got):\n%s", diff)
	}
	if bindings[1].(map[string]any)["name"] != "res" {
		t.Fatalf("expected res output binding")
	}
}

func TestRenderQueueFunction(t *testing.T) {
	out, err := RenderQueueFunction(QueueFunctionData{Queue: "revalidation"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	trigger := decode(t, out)["bindings"].([]any)[0].(map[string]any)
	if trigger["queueName"] != "revalidation" || trigger["connection"] != StorageConnection || trigger["name"] != "msg" {
		t.Fatalf("unexpected trigger: %v", trigger)
	}
}

func TestRenderParametersEscapesValues(t *testing.T) {
	out, err := RenderParameters(ParametersData{
		AppName:            "shop",
		Location:           "eastus",
		StorageAccountName: "stshop",
		SKU:                "Y1",
		NodeVersion:        "20",
		AppSettings:        map[string]string{"NEXT_BUILD_ID": `b"1`},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	params := decode(t, out)["parameters"].(map[string]any)
	settings := params["appSettings"].(map[string]any)["value"].(map[string]any)
	if settings["NEXT_BUILD_ID"] != `b"1` {
		t.Fatalf("unexpected settings: %v", settings)
	}
	if params["tags"].(map[string]any)["value"] == nil {
		t.Fatalf("tags must render as an object")
	}
}

func TestBicepDeclaresOutputs(t *testing.T) {
	bicep, err := Bicep()
	if err != nil {
		t.Fatalf("bicep: %v", err)
	}
	for _, output := range []string{"functionAppName", "defaultHostName", "storageAccountName", "assetsBaseUrl"} {
		if !strings.Contains(bicep, "output "+output) {
			t.Fatalf("missing output %s", output)
		}
	}
}
