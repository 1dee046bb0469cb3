package domain

// Activity represents an extracurricular offering and its enrolled participants.
// Participants holds unique emails in signup order.
type Activity struct {
	ID              string
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// HasParticipant reports whether email is already enrolled.
func (a Activity) HasParticipant(email string) bool {
	return a.indexOf(email) >= 0
}

// IsFull reports whether the participant list has reached capacity.
func (a Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// Clone returns a copy that shares no memory with a.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = append(make([]string, 0, len(a.Participants)), a.Participants...)
	return out
}

// AddParticipant appends email to the participant list.
func (a *Activity) AddParticipant(email string) {
	a.Participants = append(a.Participants, email)
}

// RemoveParticipant drops the first matching email and reports whether one was found.
func (a *Activity) RemoveParticipant(email string) bool {
	idx := a.indexOf(email)
	if idx < 0 {
		return false
	}
	a.Participants = append(a.Participants[:idx], a.Participants[idx+1:]...)
	return true
}

func (a Activity) indexOf(email string) int {
	for i, p := range a.Participants {
		if p == email {
			return i
		}
	}
	return -1
}

// DefaultActivities returns the built-in seed set in directory order.
func DefaultActivities() []Activity {
	return []Activity{
		{
			ID:              "chess",
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			ID:              "programming",
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			ID:              "gym",
			Name:            "Gym Class",
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
		{
			ID:              "basketball",
			Name:            "Basketball Team",
			Description:     "Compete in basketball games and tournaments",
			Schedule:        "Mondays and Wednesdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 15,
			Participants:    []string{"alex@mergington.edu"},
		},
		{
			ID:              "soccer",
			Name:            "Soccer Club",
			Description:     "Play and train in soccer matches",
			Schedule:        "Tuesdays and Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"james@mergington.edu", "lucas@mergington.edu"},
		},
		{
			ID:              "art",
			Name:            "Art Studio",
			Description:     "Explore painting, drawing, and visual arts",
			Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 18,
			Participants:    []string{"isabella@mergington.edu"},
		},
		{
			ID:              "drama",
			Name:            "Drama Club",
			Description:     "Perform in theater productions and improve acting skills",
			Schedule:        "Fridays, 4:00 PM - 5:30 PM",
			MaxParticipants: 25,
			Participants:    []string{"natalie@mergington.edu", "ryan@mergington.edu"},
		},
		{
			ID:              "debate",
			Name:            "Debate Team",
			Description:     "Develop public speaking and critical thinking skills",
			Schedule:        "Mondays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 16,
			Participants:    []string{"sophie@mergington.edu"},
		},
		{
			ID:              "science",
			Name:            "Science Club",
			Description:     "Conduct experiments and explore scientific concepts",
			Schedule:        "Tuesdays, 3:30 PM - 4:45 PM",
			MaxParticipants: 20,
			Participants:    []string{"thomas@mergington.edu", "anna@mergington.edu"},
		},
	}
}
