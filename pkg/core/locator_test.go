package core

import "testing"

func TestElementLocatorString(t *testing.T) {
	var nilLoc *ElementLocator
	if got := nilLoc.String(); got != "<nil>" {
		t.Errorf("nil String() = %q", got)
	}

	loc := &ElementLocator{Path: "//HTML/BODY/FORM/INPUT[2]", ComponentType: "EditBox", WindowID: "w1"}
	if got := loc.String(); got != "EditBox[//HTML/BODY/FORM/INPUT[2]]@w1" {
		t.Errorf("String() = %q", got)
	}
}

func TestFrameLocatorWithChild(t *testing.T) {
	orig := FrameLocator{
		FullPathPrefix:  "/HTML/FRAMESET/FRAME[1]",
		ChildPathSuffix: "/HTML/BODY",
		Chain:           []string{"name=left"},
	}

	cp := orig.WithChild("/HTML/BODY/A")
	if cp.ChildPathSuffix != "/HTML/BODY/A" {
		t.Errorf("ChildPathSuffix = %q", cp.ChildPathSuffix)
	}
	if orig.ChildPathSuffix != "/HTML/BODY" {
		t.Error("WithChild modified the original")
	}

	cp.Chain[0] = "index=9"
	if orig.Chain[0] != "name=left" {
		t.Error("WithChild shares the chain slice with the original")
	}

	if !orig.HasFrames() {
		t.Error("HasFrames() = false for a framed locator")
	}
	if (FrameLocator{ChildPathSuffix: "/HTML/BODY"}).HasFrames() {
		t.Error("HasFrames() = true for an unframed locator")
	}
}
