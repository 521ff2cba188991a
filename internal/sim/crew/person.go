package crew

// Person is anyone the crew can hold an opinion about. The manager is a
// Person with no skills.
type Person struct {
	Name   string
	Age    int
	Gender string
}
