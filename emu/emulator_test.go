package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/rv32sim/emu"
)

var _ = Describe("Interpreter", func() {
	var (
		e    *emu.Interpreter
		regs *emu.RegFile
	)

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()
		e = emu.NewInterpreter(
			emu.WithMemoryCapacity(4096),
			emu.WithLogger(logger),
		)
		regs = e.RegFile()
	})

	Describe("NewInterpreter", func() {
		It("should create an interpreter with initialized components", func() {
			Expect(e).NotTo(BeNil())
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.PC()).To(BeZero())
			Expect(regs.X).To(Equal([32]uint64{}))
		})

		It("should default to a 4 MiB memory", func() {
			Expect(emu.NewInterpreter().Memory().Capacity()).To(Equal(emu.DefaultMemoryCapacity))
		})

		It("should accept an entry point", func() {
			Expect(emu.NewInterpreter(emu.WithEntryPoint(0x1000)).PC()).To(Equal(uint64(0x1000)))
		})
	})

	Describe("Driver vectors", func() {
		It("should execute JAL x1, 3156 from pc=0", func() {
			result := e.Execute(0b01000101010100000000000011101111)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Jumped).To(BeTrue())
			Expect(regs.ReadReg(1)).To(Equal(uint64(4)))
			Expect(e.PC()).To(Equal(uint64(3156)))
		})

		It("should execute ADDI x10, x8, 0 with x8 = 0", func() {
			regs.WriteReg(10, 99)

			result := e.Execute(0b00000000000001000000010100010011)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Jumped).To(BeFalse())
			Expect(regs.ReadReg(10)).To(BeZero())
			Expect(e.PC()).To(BeZero())
		})

		It("should take BEQ x15, x0, 8 when both are zero", func() {
			e.SetPC(0x100)

			result := e.Execute(0b00000000000001111000010001100011)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Jumped).To(BeTrue())
			Expect(e.PC()).To(Equal(uint64(0x108)))
		})

		DescribeTable("ADDI x2, x2, -16",
			func(x2, expected uint64) {
				regs.WriteReg(2, x2)

				result := e.Execute(0b11111111000000010000000100010011)

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(2)).To(Equal(expected))
			},
			Entry("positive result", uint64(0x1000), uint64(0xFF0)),
			Entry("zero result", uint64(16), uint64(0)),
			Entry("wraps below zero", uint64(0), uint64(0xFFFFFFFFFFFFFFF0)),
			Entry("wraps from a small value", uint64(8), uint64(0xFFFFFFFFFFFFFFF8)),
			Entry("uses the low 32 bits of a zero-extended seed",
				uint64(0x00000000FFFFFFF0), uint64(0xFFFFFFFFFFFFFFE0)),
			Entry("ignores bits above 31", uint64(0x1234567800001000), uint64(0xFF0)),
		)
	})

	Describe("Upper immediates", func() {
		It("should execute LUI", func() {
			e.Execute(encodeLUI(5, 0x12345))
			Expect(regs.ReadReg(5)).To(Equal(uint64(0x12345000)))
		})

		It("should sign-extend LUI with bit 31 set", func() {
			e.Execute(encodeLUI(5, 0xFFFFF))
			Expect(regs.ReadReg(5)).To(Equal(uint64(0xFFFFFFFFFFFFF000)))
		})

		It("should execute AUIPC relative to pc", func() {
			e.SetPC(0x100)

			result := e.Execute(encodeU(1, 3, 0b0010111))

			Expect(result.Jumped).To(BeFalse())
			Expect(regs.ReadReg(3)).To(Equal(uint64(0x1100)))
			Expect(e.PC()).To(Equal(uint64(0x100)))
		})
	})

	Describe("Jumps", func() {
		It("should execute JAL with a negative offset", func() {
			e.SetPC(0x100)

			e.Execute(encodeJ(-0x100, 1))

			Expect(e.PC()).To(BeZero())
			Expect(regs.ReadReg(1)).To(Equal(uint64(0x104)))
		})

		It("should not link through x0", func() {
			e.SetPC(0x100)

			e.Execute(encodeJ(8, 0))

			Expect(e.PC()).To(Equal(uint64(0x108)))
			Expect(regs.ReadReg(0)).To(BeZero())
		})

		It("should execute JALR and clear bit 0 of the target", func() {
			e.SetPC(0x40)
			regs.WriteReg(2, 0x203)

			result := e.Execute(encodeJALR(1, 2, 4))

			Expect(result.Jumped).To(BeTrue())
			Expect(e.PC()).To(Equal(uint64(0x206)))
			Expect(regs.ReadReg(1)).To(Equal(uint64(0x44)))
		})

		It("should read the JALR base before writing the link register", func() {
			e.SetPC(0x10)
			regs.WriteReg(1, 0x300)

			e.Execute(encodeJALR(1, 1, 0))

			Expect(e.PC()).To(Equal(uint64(0x300)))
			Expect(regs.ReadReg(1)).To(Equal(uint64(0x14)))
		})

		It("should add a negative JALR offset", func() {
			regs.WriteReg(2, 0x210)

			e.Execute(encodeJALR(0, 2, -16))

			Expect(e.PC()).To(Equal(uint64(0x200)))
		})
	})

	Describe("Branches", func() {
		BeforeEach(func() {
			e.SetPC(0x100)
			regs.WriteReg32(1, 0xFFFFFFFF) // -1
			regs.WriteReg32(2, 1)
		})

		DescribeTable("compares registers",
			func(funct3, rs1, rs2 uint32, taken bool) {
				result := e.Execute(encodeB(-8, rs2, rs1, funct3))

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(result.Jumped).To(Equal(taken))
				if taken {
					Expect(e.PC()).To(Equal(uint64(0xF8)))
				} else {
					Expect(e.PC()).To(Equal(uint64(0x100)))
				}
			},
			Entry("BEQ equal", uint32(0b000), uint32(1), uint32(1), true),
			Entry("BEQ different", uint32(0b000), uint32(1), uint32(2), false),
			Entry("BNE different", uint32(0b001), uint32(1), uint32(2), true),
			Entry("BNE equal", uint32(0b001), uint32(2), uint32(2), false),
			Entry("BLT -1 < 1", uint32(0b100), uint32(1), uint32(2), true),
			Entry("BLT 1 < -1", uint32(0b100), uint32(2), uint32(1), false),
			Entry("BGE 1 >= -1", uint32(0b101), uint32(2), uint32(1), true),
			Entry("BGE equal", uint32(0b101), uint32(1), uint32(1), true),
			Entry("BGE -1 >= 1", uint32(0b101), uint32(1), uint32(2), false),
			Entry("BLTU 1 < 0xFFFFFFFF", uint32(0b110), uint32(2), uint32(1), true),
			Entry("BLTU 0xFFFFFFFF < 1", uint32(0b110), uint32(1), uint32(2), false),
			Entry("BGEU 0xFFFFFFFF >= 1", uint32(0b111), uint32(1), uint32(2), true),
			Entry("BGEU 1 >= 0xFFFFFFFF", uint32(0b111), uint32(2), uint32(1), false),
		)

		It("should report a taken branch to itself as a jump", func() {
			result := e.Execute(encodeB(0, 0, 0, 0b000))

			Expect(result.Jumped).To(BeTrue())
			Expect(e.PC()).To(Equal(uint64(0x100)))
		})
	})

	Describe("Loads", func() {
		BeforeEach(func() {
			Expect(e.Memory().Write32(0x200, 0x8000FF80)).To(Succeed())
			regs.WriteReg(1, 0x200)
		})

		DescribeTable("extends by width",
			func(funct3 uint32, offset int32, expected uint64) {
				result := e.Execute(encodeLoad(funct3, 5, 1, offset))

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(5)).To(Equal(expected))
			},
			Entry("LB", uint32(0b000), int32(0), uint64(0xFFFFFFFFFFFFFF80)),
			Entry("LBU", uint32(0b100), int32(0), uint64(0x80)),
			Entry("LH", uint32(0b001), int32(0), uint64(0xFFFFFFFFFFFFFF80)),
			Entry("LHU", uint32(0b101), int32(0), uint64(0xFF80)),
			Entry("LW", uint32(0b010), int32(0), uint64(0xFFFFFFFF8000FF80)),
			Entry("LH upper half", uint32(0b001), int32(2), uint64(0xFFFFFFFFFFFF8000)),
			Entry("LBU positive byte", uint32(0b100), int32(2), uint64(0x00)),
			Entry("LW unaligned", uint32(0b010), int32(1), uint64(0x008000FF)),
		)

		It("should add a negative offset", func() {
			regs.WriteReg(1, 0x204)

			e.Execute(encodeLoad(0b100, 5, 1, -4))

			Expect(regs.ReadReg(5)).To(Equal(uint64(0x80)))
		})

		It("should form the address from the low 32 bits of rs1", func() {
			regs.WriteReg(1, 0xFFFFFFFF00000200)

			result := e.Execute(encodeLoad(0b100, 5, 1, 0))

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(5)).To(Equal(uint64(0x80)))
		})

		It("should leave rd unchanged when the load is out of bounds", func() {
			regs.WriteReg(1, 4094)
			regs.WriteReg(5, 77)

			result := e.Execute(encodeLoad(0b010, 5, 1, 0))

			Expect(errors.Is(result.Err, emu.ErrOutOfBounds)).To(BeTrue())
			Expect(errors.Is(result.Err, emu.ErrIllegalInstruction)).To(BeFalse())
			Expect(regs.ReadReg(5)).To(Equal(uint64(77)))

			var fault *emu.MemoryFault
			Expect(errors.As(result.Err, &fault)).To(BeTrue())
			Expect(fault.Addr).To(Equal(uint64(4094)))
		})

		It("should deny loads from unreadable memory", func() {
			memory := emu.NewMemory(emu.WithCapacity(4096), emu.WithRegion(0x200, 4, emu.PermExec))
			e = emu.NewInterpreter(emu.WithMemory(memory))
			e.RegFile().WriteReg(1, 0x200)

			result := e.Execute(encodeLoad(0b000, 5, 1, 0))

			Expect(errors.Is(result.Err, emu.ErrPermissionDenied)).To(BeTrue())
			Expect(e.RegFile().ReadReg(5)).To(BeZero())
		})
	})

	Describe("Stores", func() {
		BeforeEach(func() {
			regs.WriteReg(1, 0x300)
			regs.WriteReg(2, 0x12345678)
		})

		It("should execute SB", func() {
			Expect(e.Execute(encodeS(0, 2, 1, 0b000)).Err).NotTo(HaveOccurred())
			Expect(e.Memory().Read32(0x300)).To(Equal(uint32(0x78)))
		})

		It("should execute SH", func() {
			Expect(e.Execute(encodeS(2, 2, 1, 0b001)).Err).NotTo(HaveOccurred())
			Expect(e.Memory().Read32(0x300)).To(Equal(uint32(0x56780000)))
		})

		It("should execute SW with a negative offset", func() {
			Expect(e.Execute(encodeS(-4, 2, 1, 0b010)).Err).NotTo(HaveOccurred())
			Expect(e.Memory().Read32(0x2FC)).To(Equal(uint32(0x12345678)))
		})

		It("should not write any byte when part of the store is read-only", func() {
			memory := emu.NewMemory(emu.WithCapacity(4096), emu.WithRegion(0x400, 4, emu.PermRead))
			e = emu.NewInterpreter(emu.WithMemory(memory))
			e.RegFile().WriteReg(1, 0x3FE)
			e.RegFile().WriteReg(2, 0xFFFFFFFF)

			result := e.Execute(encodeS(0, 2, 1, 0b010))

			Expect(errors.Is(result.Err, emu.ErrPermissionDenied)).To(BeTrue())
			Expect(memory.Read16(0x3FE)).To(BeZero())
		})

		It("should fault on a store past the capacity", func() {
			regs.WriteReg(1, 4096)

			result := e.Execute(encodeS(0, 2, 1, 0b000))

			Expect(errors.Is(result.Err, emu.ErrOutOfBounds)).To(BeTrue())
		})
	})

	Describe("Register-immediate ALU", func() {
		DescribeTable("computes 32-bit results",
			func(funct3 uint32, imm int32, x1 uint32, expected uint64) {
				regs.WriteReg32(1, x1)

				result := e.Execute(encodeI(imm, 1, funct3, 3, 0b0010011))

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(3)).To(Equal(expected))
			},
			Entry("ADDI", uint32(0b000), int32(-7), uint32(5), uint64(0xFFFFFFFFFFFFFFFE)),
			Entry("ADDI overflow", uint32(0b000), int32(1), uint32(0x7FFFFFFF), uint64(0xFFFFFFFF80000000)),
			Entry("SLTI true", uint32(0b010), int32(-4), uint32(0xFFFFFFFB), uint64(1)),
			Entry("SLTI false", uint32(0b010), int32(-4), uint32(3), uint64(0)),
			Entry("SLTIU against -1", uint32(0b011), int32(-1), uint32(3), uint64(1)),
			Entry("SLTIU of -1", uint32(0b011), int32(1), uint32(0xFFFFFFFF), uint64(0)),
			Entry("XORI -1", uint32(0b100), int32(-1), uint32(0xF0F0), uint64(0xFFFFFFFFFFFF0F0F)),
			Entry("ORI", uint32(0b110), int32(0xFF), uint32(0x100), uint64(0x1FF)),
			Entry("ANDI", uint32(0b111), int32(0xF0), uint32(0xABCD), uint64(0xC0)),
			Entry("SLLI 31", uint32(0b001), int32(31), uint32(1), uint64(0xFFFFFFFF80000000)),
			Entry("SRLI 4", uint32(0b101), int32(4), uint32(0x80000000), uint64(0x08000000)),
			Entry("SRAI 4", uint32(0b101), int32(0x400|4), uint32(0x80000000), uint64(0xFFFFFFFFF8000000)),
		)
	})

	Describe("Register-register ALU", func() {
		DescribeTable("computes 32-bit results",
			func(funct7, funct3, x1, x2 uint32, expected uint64) {
				regs.WriteReg32(1, x1)
				regs.WriteReg32(2, x2)

				result := e.Execute(encodeR(funct7, 2, 1, funct3, 3, 0b0110011))

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(3)).To(Equal(expected))
			},
			Entry("ADD wraps", uint32(0), uint32(0b000), uint32(0xFFFFFFFF), uint32(2), uint64(1)),
			Entry("SUB", uint32(0x20), uint32(0b000), uint32(1), uint32(2), uint64(0xFFFFFFFFFFFFFFFF)),
			Entry("SLL uses low 5 bits", uint32(0), uint32(0b001), uint32(1), uint32(35), uint64(8)),
			Entry("SLT", uint32(0), uint32(0b010), uint32(0xFFFFFFFF), uint32(1), uint64(1)),
			Entry("SLTU", uint32(0), uint32(0b011), uint32(0xFFFFFFFF), uint32(1), uint64(0)),
			Entry("XOR", uint32(0), uint32(0b100), uint32(0xFF00), uint32(0x0FF0), uint64(0xF0F0)),
			Entry("SRL", uint32(0), uint32(0b101), uint32(0x80000000), uint32(31), uint64(1)),
			Entry("SRA", uint32(0x20), uint32(0b101), uint32(0x80000000), uint32(31), uint64(0xFFFFFFFFFFFFFFFF)),
			Entry("OR", uint32(0), uint32(0b110), uint32(0xF0), uint32(0x0F), uint64(0xFF)),
			Entry("AND", uint32(0), uint32(0b111), uint32(0xF0), uint32(0x3C), uint64(0x30)),
		)
	})

	Describe("Register zero", func() {
		BeforeEach(func() {
			Expect(e.Memory().Write32(0x200, 0xDEADBEEF)).To(Succeed())
			regs.WriteReg(1, 0x200)
		})

		DescribeTable("discards writes to x0",
			func(word uint32) {
				Expect(regs.ReadReg(0)).To(BeZero())

				result := e.Execute(word)

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(0)).To(BeZero())
				Expect(regs.X[0]).To(BeZero())
			},
			Entry("ADDI", encodeADDI(0, 0, 5)),
			Entry("LUI", encodeLUI(0, 0xABCDE)),
			Entry("AUIPC", encodeU(1, 0, 0b0010111)),
			Entry("JAL", encodeJ(8, 0)),
			Entry("JALR", encodeJALR(0, 1, 0)),
			Entry("LW", encodeLoad(0b010, 0, 1, 0)),
			Entry("ADD", encodeR(0, 1, 1, 0b000, 0, 0b0110011)),
			Entry("SLLI", encodeI(3, 1, 0b001, 0, 0b0010011)),
		)
	})

	Describe("Fence and system", func() {
		It("should treat FENCE as a no-op", func() {
			e.SetPC(0x20)
			before := *regs

			result := e.Execute(wordFENCE)

			Expect(result).To(Equal(emu.StepResult{}))
			Expect(*regs).To(Equal(before))
		})

		It("should signal ECALL without moving the pc", func() {
			e.SetPC(0x20)

			result := e.Execute(wordECALL)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Trap).To(Equal(emu.TrapECall))
			Expect(result.Jumped).To(BeFalse())
			Expect(e.PC()).To(Equal(uint64(0x20)))
		})

		It("should signal EBREAK", func() {
			result := e.Execute(wordEBREAK)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Trap).To(Equal(emu.TrapEBreak))
		})
	})

	Describe("Illegal instructions", func() {
		DescribeTable("reports a distinct error",
			func(word uint32) {
				e.SetPC(0x40)
				before := *regs

				result := e.Execute(word)

				Expect(errors.Is(result.Err, emu.ErrIllegalInstruction)).To(BeTrue())
				Expect(errors.Is(result.Err, emu.ErrOutOfBounds)).To(BeFalse())
				Expect(*regs).To(Equal(before))

				var illegal *emu.IllegalInstructionError
				Expect(errors.As(result.Err, &illegal)).To(BeTrue())
				Expect(illegal.Word).To(Equal(word))
				Expect(illegal.PC).To(Equal(uint64(0x40)))
			},
			Entry("all ones", uint32(0xFFFFFFFF)),
			Entry("all zeros", uint32(0x00000000)),
			Entry("CSRRW", uint32(0x30009073)),
			Entry("MUL", encodeR(1, 2, 1, 0b000, 3, 0b0110011)),
			Entry("undefined branch funct3", encodeB(8, 0, 0, 0b010)),
		)
	})

	Describe("Tracing", func() {
		It("should log each instruction at debug level", func() {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(log.DebugLevel)
			e = emu.NewInterpreter(emu.WithLogger(logger))

			e.Execute(0xFF010113)

			Expect(hook.LastEntry()).NotTo(BeNil())
			Expect(hook.LastEntry().Message).To(Equal("addi x2, x2, -16"))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("word", "0xff010113"))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("pc", "0x00000000"))
		})

		It("should stay quiet above debug level", func() {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(log.InfoLevel)
			e = emu.NewInterpreter(emu.WithLogger(logger))

			e.Execute(0xFF010113)
			e.Execute(0xFFFFFFFF)

			Expect(hook.AllEntries()).To(BeEmpty())
		})
	})
})
