package hardware

type DisplayInterface interface {
	SetText(line, col uint8, text string) error
	ClearLine(line uint8) error
}

// ControllerScreen writes to the driver controller's text display. The
// link payload carries four characters per frame, so longer strings go out
// as a burst of column-offset writes.
type ControllerScreen struct {
	Node *DeviceNode
}

func (s *ControllerScreen) SetText(line, col uint8, text string) error {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > 4 {
			chunk = chunk[:4]
		}

		cmd := &CMDSetText{
			BaseCommand: &BaseCommand{node: s.Node},
			line:        line,
			col:         col,
			text:        chunk,
		}

		if _, err := s.Node.Process(cmd); err != nil {
			return err
		}

		text = text[len(chunk):]
		col += uint8(len(chunk))
	}

	return nil
}

func (s *ControllerScreen) ClearLine(line uint8) error {
	cmd := &CMDClearLine{
		BaseCommand: &BaseCommand{node: s.Node},
		line:        line,
	}

	_, err := s.Node.Process(cmd)
	return err
}
