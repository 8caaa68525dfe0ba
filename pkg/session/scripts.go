// Package session holds the page scripts shared by the browser-backed
// core.BrowserSession implementations.
//
// Every script is a self-contained JavaScript expression evaluated in the top
// window of a tab. Frame selection is replayed from the top on each call using
// the chain of "name=X" / "index=N" switch locators, so a session only has to
// remember that chain.
package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

// frameWindow evaluates to the window selected by chain, or null.
const frameWindow = `(function(c){var w=window;` +
	`for(var i=0;i<c.length;i++){var s=c[i],f=null;` +
	`if(s.indexOf("name=")===0){f=w.frames[s.slice(5)];}` +
	`else if(s.indexOf("index=")===0){f=w.frames[parseInt(s.slice(6),10)-1];}` +
	`if(!f){return null;}w=f;}return w;})(%s)`

// lookup binds el to the first node matching the xpath in the frame's
// document. Throws when the frame is gone.
const lookup = `var w=%s;if(!w){throw new Error("frame not reachable");}` +
	`var d=w.document;var el=d.evaluate(%s,d,null,9,null).singleNodeValue;`

// AttributeResult is the decoded result of AttributeScript.
type AttributeResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// MarkupResult is the decoded result of MarkupScript.
type MarkupResult struct {
	Found  bool   `json:"found"`
	Markup string `json:"markup"`
}

// FrameWindow returns an expression evaluating to the selected frame's window.
func FrameWindow(chain []string) string {
	return fmt.Sprintf(frameWindow, jsArg(chainOrEmpty(chain)))
}

// FrameExistsScript evaluates to true when every step of chain resolves.
func FrameExistsScript(chain []string) string {
	return "(" + FrameWindow(chain) + ")!==null"
}

// AttributeScript evaluates to an AttributeResult for the element at xpath.
// Markup attributes win over DOM properties; object-valued properties count
// as absent.
func AttributeScript(chain []string, xpath, name string) string {
	return "(function(){" + fmt.Sprintf(lookup, FrameWindow(chain), jsArg(xpath)) +
		`if(!el){return {found:false,value:""};}var n=` + jsArg(name) + `;` +
		`if(el.hasAttribute&&el.hasAttribute(n)){return {found:true,value:el.getAttribute(n)};}` +
		`var v=el[n];if(v===undefined||v===null||typeof v==="object"||typeof v==="function"){return {found:false,value:""};}` +
		`return {found:true,value:String(v)};})()`
}

// VisibleScript evaluates to true when xpath resolves to a displayed element.
func VisibleScript(chain []string, xpath string) string {
	return "(function(){" + fmt.Sprintf(lookup, FrameWindow(chain), jsArg(xpath)) +
		`if(!el){return false;}var s=w.getComputedStyle(el);` +
		`if(s.display==="none"||s.visibility==="hidden"){return false;}` +
		`return el.getClientRects().length>0;})()`
}

// MarkupScript evaluates to a MarkupResult holding the outer markup of the
// first same-origin document in the tab whose location is url.
func MarkupScript(url string) string {
	return `(function(want){function walk(w){var href;` +
		`try{href=w.location.href;}catch(e){return null;}` +
		`if(href===want){return w.document.documentElement.outerHTML;}` +
		`for(var i=0;i<w.frames.length;i++){var r=walk(w.frames[i]);if(r!==null){return r;}}return null;}` +
		`var m=walk(window);return m===null?{found:false,markup:""}:{found:true,markup:m};})(` + jsArg(url) + `)`
}

// PushFrame validates a SwitchToFrame locator and returns the chain with it
// appended. "" and core.TopFrame reset the chain.
func PushFrame(chain []string, locator string) ([]string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" || locator == core.TopFrame {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(locator, "name="):
		if locator == "name=" {
			return nil, fmt.Errorf("empty frame name")
		}
	case strings.HasPrefix(locator, "index="):
		n, err := strconv.Atoi(strings.TrimPrefix(locator, "index="))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad frame index in %q", locator)
		}
	default:
		return nil, fmt.Errorf("unsupported frame locator %q", locator)
	}
	out := make([]string, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, locator), nil
}

func chainOrEmpty(chain []string) []string {
	if chain == nil {
		return []string{}
	}
	return chain
}

// jsArg renders v as a JavaScript literal.
func jsArg(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
