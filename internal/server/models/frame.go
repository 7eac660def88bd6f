package models

// FramePage is one page of the archive listing.
type FramePage struct {
	Frames []string
	Page   int
	Total  int
}

// FrameData is a frame's content together with its filename.
type FrameData struct {
	Name string
	Data []byte
}
