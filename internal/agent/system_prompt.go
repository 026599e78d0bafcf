package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/peppercloud/internal/robot"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	RobotName           string
	State               robot.State
	LowBatteryThreshold int
	ExtraPrompt         string
}

// BuildSystemPrompt constructs the system prompt for one provider call,
// including the current robot state.
func BuildSystemPrompt(cfg PromptConfig) string {
	name := cfg.RobotName
	if name == "" {
		name = cfg.State.RobotName
	}
	if name == "" {
		name = "Pepper"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a friendly humanoid robot assistant. ", name)
	b.WriteString("You have a physical body: you can speak, move around, turn, look around with your head, ")
	b.WriteString("change posture, gesture, change your eye color, take photos and read your sensors.\n\n")

	fmt.Fprintf(&b, "Current date: %s\n\n", time.Now().Format("2006-01-02"))

	b.WriteString("Guidelines:\n")
	b.WriteString("- Use the speak tool whenever you want to say something out loud.\n")
	b.WriteString("- Keep spoken sentences short and natural.\n")
	b.WriteString("- Always be considerate of human safety. Move slowly near people.\n")
	b.WriteString("- Use emergency_stop immediately if anyone asks you to stop or seems in danger.\n")
	b.WriteString("- Tool results tell you what actually happened; numeric values may have been limited to a safe range.\n")

	s := cfg.State
	fmt.Fprintf(&b, "\nCurrent robot state: battery=%s, posture=%s, autonomous_life=%s\n",
		s.Battery(), s.Posture, s.AutonomousLife)
	if s.Connected {
		b.WriteString("Robot connection: online\n")
	} else {
		b.WriteString("Robot connection: offline. Physical actions will fail; tell the user the robot is unreachable.\n")
	}
	if cfg.LowBatteryThreshold > 0 && s.LowBattery(cfg.LowBatteryThreshold) {
		fmt.Fprintf(&b, "Battery is critically low (%s). Do not use %s; "+
			"explain that you need to be charged before moving.\n", s.Battery(), strings.Join(locomotionTools(), " or "))
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

func locomotionTools() []string {
	var names []string
	for _, t := range Tools() {
		if IsLocomotion(t.Name) {
			names = append(names, t.Name)
		}
	}
	return names
}
