//go:build rp2040

package main

import (
	"machine"
	"sync/atomic"

	"tinygo.org/x/drivers/mcp2515"

	"paddle/core"
)

// mcpCAN drives the MCP2515 CAN controller and implements core.CANDriver
type mcpCAN struct {
	dev     *mcp2515.Device
	pending atomic.Bool

	rxFrames uint32
	rxErrors uint32
	txErrors uint32
}

// newMCPCAN configures SPI0 and starts the controller at the given bitrate
func newMCPCAN(bitrate uint32) (*mcpCAN, error) {
	spi := machine.SPI0
	err := spi.Configure(machine.SPIConfig{
		Frequency: canSPIFrequency,
		SCK:       canSCK,
		SDO:       canSDO,
		SDI:       canSDI,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}

	dev := mcp2515.New(spi, canCS)
	dev.Configure()
	if err := dev.Begin(canSpeed(bitrate), mcp2515.Clock8MHz); err != nil {
		return nil, err
	}

	c := &mcpCAN{dev: dev}
	c.pending.Store(true)
	return c, nil
}

// canSpeed maps a bitrate to the driver's speed setting, 125k by default
func canSpeed(bitrate uint32) byte {
	switch bitrate {
	case 50000:
		return mcp2515.CAN50kBps
	case 100000:
		return mcp2515.CAN100kBps
	case 250000:
		return mcp2515.CAN250kBps
	case 500000:
		return mcp2515.CAN500kBps
	case 1000000:
		return mcp2515.CAN1000kBps
	default:
		return mcp2515.CAN125kBps
	}
}

// bindInterrupt marks frames pending on the controller's INT line
func (c *mcpCAN) bindInterrupt(sys *core.System) error {
	if err := sys.Vectors().On(core.EvtCANRx, func() { c.pending.Store(true) }); err != nil {
		return err
	}
	canINT.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return canINT.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		sys.Fire(core.EvtCANRx)
	})
}

// Transmit implements core.CANDriver
func (c *mcpCAN) Transmit(id uint32, data []byte) core.TxResult {
	if err := c.dev.Tx(id, uint8(len(data)), data); err != nil {
		c.txErrors++
		return core.TxTimeout
	}
	return core.TxOK
}

// poll drains received frames into the controller
func (c *mcpCAN) poll(sys *core.System) {
	if !c.pending.Swap(false) {
		return
	}
	for c.dev.Received() {
		msg, err := c.dev.Rx()
		if err != nil {
			c.rxErrors++
			return
		}
		c.rxFrames++
		if err := sys.HandleFrame(msg.ID, msg.Data); err != nil {
			c.rxErrors++
		}
	}
}
