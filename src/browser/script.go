package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"easlog/src/actions"
	"easlog/src/provider"
)

// BindingName is the page function the injected buttons call.
const BindingName = "easlogExport"

// ButtonClass matches the dashboard's primary buttons so ours sit naturally
// next to "Install".
const ButtonClass = "border-solid rounded-md font-medium h-9 px-4 text-xs bg-button-primary text-button-primary hocus:bg-button-primary-hover"

// AnchorText is the label of the control the buttons are placed next to.
const AnchorText = "Install"

type buttonSpec struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type injectConfig struct {
	Build     string       `json:"build"`
	Anchor    string       `json:"anchor"`
	ClassName string       `json:"className"`
	Binding   string       `json:"binding"`
	Buttons   []buttonSpec `json:"buttons"`
}

// Click is the payload a button sends through the binding.
type Click struct {
	Build  string `json:"build"`
	Action string `json:"action"`
}

// injectTemplate replaces any earlier easlog buttons, so only the latest
// build's buttons are on the page. It evaluates to false when the anchor is missing.
const injectTemplate = `(function (cfg) {
  const anchor = Array.from(document.querySelectorAll('button'))
    .find(b => b.textContent.trim() === cfg.anchor);
  if (!anchor) {
    return false;
  }
  document.querySelectorAll('[data-easlog]').forEach(b => b.remove());
  for (const spec of cfg.buttons) {
    const btn = document.createElement('button');
    btn.textContent = spec.label;
    btn.className = cfg.className;
    btn.dataset.easlog = cfg.build + ':' + spec.kind;
    btn.onclick = (e) => {
      e.preventDefault();
      window[cfg.binding](JSON.stringify({build: cfg.build, action: spec.kind}));
    };
    anchor.parentNode.appendChild(btn);
  }
  return true;
})(%s)`

const statusTemplate = `(function (sel, text, failed) {
  const btn = document.querySelector(sel);
  if (btn) {
    btn.title = text;
    btn.style.opacity = failed ? '0.6' : '';
  }
})(%s, %s, %t)`

// InjectScript returns the expression that adds one button per available
// action of rec next to the anchor.
func InjectScript(rec *provider.BuildRecord) string {
	cfg := injectConfig{
		Build:     rec.ID,
		Anchor:    AnchorText,
		ClassName: ButtonClass,
		Binding:   BindingName,
		Buttons:   []buttonSpec{},
	}
	for _, a := range actions.For(rec) {
		cfg.Buttons = append(cfg.Buttons, buttonSpec{Label: a.Label, Kind: string(a.Kind)})
	}
	data, _ := json.Marshal(cfg)
	return fmt.Sprintf(injectTemplate, data)
}

// StatusScript returns the expression that reports an action's outcome on its button.
func StatusScript(buildID string, kind actions.Kind, text string, failed bool) string {
	sel, _ := json.Marshal(fmt.Sprintf(`[data-easlog="%s:%s"]`, cssEscape(buildID), kind))
	msg, _ := json.Marshal(text)
	return fmt.Sprintf(statusTemplate, sel, msg, failed)
}

// ParseClick decodes a binding payload.
func ParseClick(payload string) (Click, actions.Kind, error) {
	var c Click
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Click{}, "", fmt.Errorf("invalid button payload: %w", err)
	}
	if c.Build == "" {
		return Click{}, "", fmt.Errorf("invalid button payload: missing build")
	}
	kind, err := actions.ParseKind(c.Action)
	if err != nil {
		return Click{}, "", err
	}
	return c, kind, nil
}

// cssEscape makes s safe inside a double-quoted attribute selector.
func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
