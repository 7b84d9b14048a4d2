package curriculum

// Syllabus is the on-disk shape of a syllabus YAML file.
type Syllabus struct {
	ID       string    `yaml:"syllabus"`
	Subjects []Subject `yaml:"subjects"`
}

// Subject lists the chapters of one subject in textbook order.
type Subject struct {
	Name     string    `yaml:"name"`
	Chapters []Chapter `yaml:"chapters"`
}

// Chapter is a chapter name with an optional textbook context snippet.
type Chapter struct {
	Name    string `yaml:"name"`
	Context string `yaml:"context"`
}
