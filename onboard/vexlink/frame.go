package vexlink

import (
	"encoding/binary"
)

func checksum(raw []byte) (sum byte) {
	for _, b := range raw {
		sum ^= b
	}
	return
}

func (msg *Msg) ToByteArray() (raw []byte, err error) {
	raw = make([]byte, FRAME_LEN)

	raw[0] = FRAME_SOF
	raw[1] = msg.Port

	binary.BigEndian.PutUint16(raw[2:4], msg.Cmd)

	// check and assign length to DLC
	if len(msg.Data) > MAX_DATA_LEN {
		return nil, ERR_DATA_TOO_LONG
	}
	raw[4] = byte(len(msg.Data))

	// copy the raw command data
	copy(raw[5:], msg.Data)

	raw[FRAME_LEN-1] = checksum(raw[:FRAME_LEN-1])

	return
}

func MsgFromByteArray(raw []byte) (msg Msg, err error) {
	if len(raw) < FRAME_LEN || raw[0] != FRAME_SOF {
		return msg, ERR_BAD_FRAME
	}

	if checksum(raw[:FRAME_LEN-1]) != raw[FRAME_LEN-1] {
		return msg, ERR_BAD_CHECKSUM
	}

	dataLength := raw[4]
	if dataLength > MAX_DATA_LEN {
		return msg, ERR_DATA_TOO_LONG
	}

	msg.Port = raw[1]
	msg.Cmd = binary.BigEndian.Uint16(raw[2:4])
	msg.Data = raw[5 : 5+dataLength]

	return
}
