package memory

import "chromamind-service/internal/domain"

// DefaultColorProfiles is the display reference data for each assignable
// color, keyed by category name.
func DefaultColorProfiles() map[string]domain.ColorProfile {
	return map[string]domain.ColorProfile{
		"red":    {ColorName: "Red", HexCode: "#EF4444", Title: "The Driver", Summary: "Bold and decisive", FullDescription: "You are action-oriented and thrive when taking charge."},
		"blue":   {ColorName: "Blue", HexCode: "#3B82F6", Title: "The Analyst", Summary: "Thoughtful and steady", FullDescription: "You value logic, calm, and thoughtful planning."},
		"yellow": {ColorName: "Yellow", HexCode: "#F59E0B", Title: "The Inspirer", Summary: "Warm and enthusiastic", FullDescription: "You energize others with optimism and creativity."},
		"green":  {ColorName: "Green", HexCode: "#10B981", Title: "The Supporter", Summary: "Empathetic and steady", FullDescription: "You are dependable and value harmony in relationships."},
		"purple": {ColorName: "Purple", HexCode: "#8B5CF6", Title: "The Visionary", Summary: "Creative and introspective", FullDescription: "You imagine futures and bring original ideas into being."},
		"orange": {ColorName: "Orange", HexCode: "#FB923C", Title: "The Enthusiast", Summary: "Adventurous and outgoing", FullDescription: "You love high energy, excitement, and inspiring others."},
		"teal":   {ColorName: "Teal", HexCode: "#14B8A6", Title: "The Harmonizer", Summary: "Calm and systematic", FullDescription: "You balance practical systems with a calm presence."},
		"pink":   {ColorName: "Pink", HexCode: "#F472B6", Title: "The Nurturer", Summary: "Compassionate and warm", FullDescription: "You prioritize care, kindness, and emotional connection."},
	}
}
