package console

import (
	"fmt"
	"strings"

	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
)

// Describe renders a snapshot as one or two lines of text.
func Describe(s flow.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d/%d] %s", s.Index+1, len(s.Steps), describeStep(s.Current))

	switch s.Mode {
	case flow.ModeConfirmExit:
		sb.WriteString("\nexit the position check? (yes/no)")
	case flow.ModeFatalError:
		fmt.Fprintf(&sb, "\nrobot error: %s (type 'dismiss')", s.FatalError)
	case flow.ModeExiting:
		sb.WriteString("\nexiting...")
	case flow.ModeClosed:
		sb.WriteString("\nclosed")
	default:
		if s.Current.IsMovement() && !s.Entered {
			sb.WriteString(" (proceed to move)")
		}
	}
	return sb.String()
}

func describeStep(st steps.Step) string {
	switch st.Kind {
	case steps.BeforeBeginning:
		return "before beginning: clear the deck and proceed"
	case steps.ResultsSummary:
		return "results summary: proceed to apply offsets"
	case steps.PickUpTip:
		return fmt.Sprintf("pick up tip from %s in slot %s", st.LabwareID, st.SlotName)
	case steps.ReturnTip:
		return fmt.Sprintf("return tip to %s in slot %s", st.LabwareID, st.SlotName)
	}
	where := "slot " + st.SlotName
	if st.ModuleID != "" {
		where += " on module " + st.ModuleID
	}
	if st.AdapterID != "" {
		where += " on adapter " + st.AdapterID
	}
	return fmt.Sprintf("check %s (%s) in %s with %s", st.LabwareID, st.DefinitionURI, where, st.PipetteID)
}
