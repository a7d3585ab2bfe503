package conn_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"mredis/conn"
)

var _ = Describe("Connection", func() {
	var ctx context.Context
	var cancel context.CancelFunc

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), shortWait)
	})
	AfterEach(func() { cancel() })

	It("resolves two pipelined sends in call order (I1)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"GET", "a"}))
			server.send("$1\r\n1\r\n")
			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"GET", "b"}))
			server.send("$1\r\n2\r\n")
		}()

		fut1, err := c.Send("GET", []byte("a"))
		Expect(err).NotTo(HaveOccurred())
		fut2, err := c.Send("GET", []byte("b"))
		Expect(err).NotTo(HaveOccurred())

		v2, err := fut2.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(v2.Bulk).To(Equal([]byte("2")))

		v1, err := fut1.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(v1.Bulk).To(Equal([]byte("1")))
	})

	It("delivers a channel message and an unsubscribe confirmation (scenario 1)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		var mu sync.Mutex
		var gotChannel, gotPayload []byte
		received := make(chan struct{}, 1)

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"SUBSCRIBE", "X"}))
			server.send("*3\r\n$9\r\nsubscribe\r\n$1\r\nX\r\n:1\r\n")
			server.send("*3\r\n$7\r\nmessage\r\n$1\r\nX\r\n$17\r\nHello from Redis!\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"UNSUBSCRIBE", "X"}))
			server.send("*3\r\n$11\r\nunsubscribe\r\n$1\r\nX\r\n:0\r\n")
		}()

		var unsubCount int64 = -1
		sub, err := c.Subscribe([][]byte{[]byte("X")},
			func(name, channel, payload []byte) {
				mu.Lock()
				gotChannel = append([]byte{}, channel...)
				gotPayload = append([]byte{}, payload...)
				mu.Unlock()
				received <- struct{}{}
			}, nil, func(name []byte, count int64) { unsubCount = count })
		Expect(err).NotTo(HaveOccurred())

		_, err = sub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSubscribed()).To(BeTrue())

		Eventually(received, shortWait).Should(Receive())
		mu.Lock()
		Expect(gotChannel).To(Equal([]byte("X")))
		Expect(gotPayload).To(Equal([]byte("Hello from Redis!")))
		mu.Unlock()

		unsub, err := c.Unsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = unsub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(unsubCount).To(Equal(int64(0)))
		Expect(c.IsSubscribed()).To(BeFalse())
	})

	It("delivers both a channel and a pattern match for one publish (scenario 2)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		var mu sync.Mutex
		var channelHits, patternHits int
		channelGot := make(chan struct{}, 1)
		patternGot := make(chan struct{}, 1)

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"SUBSCRIBE", "news"}))
			server.send("*3\r\n$9\r\nsubscribe\r\n$4\r\nnews\r\n:1\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PSUBSCRIBE", "news*"}))
			server.send("*3\r\n$10\r\npsubscribe\r\n$5\r\nnews*\r\n:2\r\n")

			// A publish matching both a direct channel subscription and a
			// pattern subscription arrives as two separate push frames.
			server.send("*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$3\r\nhot\r\n")
			server.send("*4\r\n$8\r\npmessage\r\n$5\r\nnews*\r\n$4\r\nnews\r\n$3\r\nhot\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PUBLISH", "news", "hot"}))
			server.send(":2\r\n")
		}()

		s1, err := c.Subscribe([][]byte{[]byte("news")},
			func(name, channel, payload []byte) {
				mu.Lock()
				channelHits++
				mu.Unlock()
				channelGot <- struct{}{}
			}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = s1.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		s2, err := c.PSubscribe([][]byte{[]byte("news*")},
			func(name, channel, payload []byte) {
				mu.Lock()
				patternHits++
				mu.Unlock()
				patternGot <- struct{}{}
			}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = s2.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		Eventually(channelGot, shortWait).Should(Receive())
		Eventually(patternGot, shortWait).Should(Receive())
		mu.Lock()
		Expect(channelHits).To(Equal(1))
		Expect(patternHits).To(Equal(1))
		mu.Unlock()

		n, err := c.Publish(ctx, []byte("news"), []byte("hot"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))
	})

	It("rejects a non-allowlisted command while subscribed, without writing it (scenario 4)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"SUBSCRIBE", "X"}))
			server.send("*3\r\n$9\r\nsubscribe\r\n$1\r\nX\r\n:1\r\n")
		}()

		sub, err := c.Subscribe([][]byte{[]byte("X")}, func(n, ch, p []byte) {}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = sub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Send("LPUSH", []byte("list"), []byte("value"))
		Expect(err).To(Equal(conn.ErrPubSubModeViolation))
	})

	It("answers PING while subscribed, interleaved with the pending-request FIFO (scenario 5)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"SUBSCRIBE", "X"}))
			server.send("*3\r\n$9\r\nsubscribe\r\n$1\r\nX\r\n:1\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PING"}))
			server.send("+PONG\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PING", "Hello"}))
			server.send("$5\r\nHello\r\n")
		}()

		sub, err := c.Subscribe([][]byte{[]byte("X")}, func(n, ch, p []byte) {}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = sub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		v, err := c.Ping(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Str).To(Equal("PONG"))

		v, err = c.Ping(ctx, []byte("Hello"))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Bulk).To(Equal([]byte("Hello")))
	})

	It("keeps isSubscribed true until both channel and pattern maps are empty (scenario 6)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"SUBSCRIBE", "C"}))
			server.send("*3\r\n$9\r\nsubscribe\r\n$1\r\nC\r\n:1\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PSUBSCRIBE", "*P"}))
			server.send("*3\r\n$10\r\npsubscribe\r\n$2\r\n*P\r\n:2\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"UNSUBSCRIBE", "C"}))
			server.send("*3\r\n$11\r\nunsubscribe\r\n$1\r\nC\r\n:1\r\n")

			cmd = server.nextCommand()
			Expect(cmd).To(Equal([]string{"PUNSUBSCRIBE", "*P"}))
			server.send("*3\r\n$12\r\npunsubscribe\r\n$2\r\n*P\r\n:0\r\n")
		}()

		s1, _ := c.Subscribe([][]byte{[]byte("C")}, func(n, ch, p []byte) {}, nil, nil)
		_, err := s1.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		s2, _ := c.PSubscribe([][]byte{[]byte("*P")}, func(n, ch, p []byte) {}, nil, nil)
		_, err = s2.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		u1, err := c.Unsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = u1.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSubscribed()).To(BeTrue(), "pattern subscription should survive a bare Unsubscribe")

		u2, err := c.PUnsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = u2.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSubscribed()).To(BeFalse())
	})

	It("treats unsubscribe-with-no-subscriptions as a local no-op over a real round trip (scenario 3)", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			cmd := server.nextCommand()
			Expect(cmd).To(Equal([]string{"UNSUBSCRIBE"}))
			server.send("*3\r\n$11\r\nunsubscribe\r\n$-1\r\n:0\r\n")
		}()

		Expect(c.IsSubscribed()).To(BeFalse())
		fut, err := c.Unsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = fut.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSubscribed()).To(BeFalse())
	})

	It("fails pending requests and rejects new ones after a protocol error", func() {
		client, server := pipe()
		c := conn.New(client)
		defer c.Close()

		go func() {
			server.nextCommand()
			server.send("@garbage\r\n")
		}()

		fut, err := c.Send("GET", []byte("a"))
		Expect(err).NotTo(HaveOccurred())

		_, err = fut.Wait(ctx)
		Expect(err).To(HaveOccurred())

		time.Sleep(50 * time.Millisecond)
		_, err = c.Send("GET", []byte("b"))
		Expect(err).To(Equal(conn.ErrConnectionClosed))
	})
})
